package listings

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	FirestoreBaseURL = "https://firestore.googleapis.com/v1"

	defaultCollection = "listings"
)

// FirestoreOpts configures a FirestoreStore.
type FirestoreOpts struct {
	ProjectID  string
	Collection string
	APIKey     string
	// AuthToken is an optional Firebase ID token sent as a bearer token.
	AuthToken string
	BaseURL   string
	Timeout   time.Duration
}

// FirestoreStore reads listings through the Firestore REST API.
type FirestoreStore struct {
	httpClient *resty.Client
	projectID  string
	collection string
}

// NewFirestoreStore creates a Firestore REST client.
func NewFirestoreStore(opts FirestoreOpts) *FirestoreStore {
	baseURL := FirestoreBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	collection := defaultCollection
	if opts.Collection != "" {
		collection = opts.Collection
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetDebug(false).
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if opts.APIKey != "" {
		client.SetQueryParam("key", opts.APIKey)
	}
	if opts.AuthToken != "" {
		client.SetAuthToken(opts.AuthToken)
	}

	return &FirestoreStore{
		httpClient: client,
		projectID:  opts.ProjectID,
		collection: collection,
	}
}

type firestoreValue struct {
	StringValue    *string  `json:"stringValue,omitempty"`
	IntegerValue   *string  `json:"integerValue,omitempty"`
	DoubleValue    *float64 `json:"doubleValue,omitempty"`
	TimestampValue *string  `json:"timestampValue,omitempty"`
	BooleanValue   *bool    `json:"booleanValue,omitempty"`
}

type firestoreDocument struct {
	Name       string                    `json:"name"`
	Fields     map[string]firestoreValue `json:"fields"`
	CreateTime string                    `json:"createTime"`
}

type runQueryResponse struct {
	Document *firestoreDocument `json:"document,omitempty"`
	ReadTime string             `json:"readTime,omitempty"`
}

func (s *FirestoreStore) buildQuery(category string, limit int) map[string]any {
	query := map[string]any{
		"from": []map[string]any{{"collectionId": s.collection}},
		"orderBy": []map[string]any{{
			"field":     map[string]string{"fieldPath": "createdAt"},
			"direction": "DESCENDING",
		}},
		"limit": limit,
	}
	if category != "" {
		query["where"] = map[string]any{
			"fieldFilter": map[string]any{
				"field": map[string]string{"fieldPath": "category"},
				"op":    "EQUAL",
				"value": firestoreValue{StringValue: &category},
			},
		}
	}
	return map[string]any{"structuredQuery": query}
}

// RecentByCategory implements Store.
func (s *FirestoreStore) RecentByCategory(ctx context.Context, category string, limit int) ([]Listing, error) {
	var results []runQueryResponse
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(s.buildQuery(category, limit)).
		SetResult(&results).
		Post(fmt.Sprintf("/projects/%s/databases/(default)/documents:runQuery", s.projectID))
	if err != nil {
		return nil, fmt.Errorf("firestore query failed: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("firestore query failed: %d - %s", res.StatusCode(), res.String())
	}

	listings := make([]Listing, 0, len(results))
	for _, r := range results {
		if r.Document == nil {
			continue
		}
		l, err := decodeFirestoreDocument(r.Document)
		if err != nil {
			log.Debug().Err(err).Str("document", r.Document.Name).Msg("skipping malformed listing document")
			continue
		}
		listings = append(listings, l)
	}

	return listings, nil
}

func decodeFirestoreDocument(doc *firestoreDocument) (Listing, error) {
	f := doc.Fields
	l := Listing{
		ID:           path.Base(doc.Name),
		Title:        f["title"].str(),
		Description:  f["description"].str(),
		Category:     f["category"].str(),
		University:   f["university"].str(),
		SellerID:     f["sellerId"].str(),
		Status:       f["status"].str(),
		Price:        f["price"].num(),
		SellerRating: f["sellerRating"].num(),
		RatingCount:  int(f["ratingCount"].num()),
		Condition:    pricing.Condition(f["condition"].str()),
		CreatedAt:    f["createdAt"].timestamp(),
	}
	if l.CreatedAt.IsZero() && doc.CreateTime != "" {
		if t, err := time.Parse(time.RFC3339Nano, doc.CreateTime); err == nil {
			l.CreatedAt = t
		}
	}
	if err := l.Normalize(); err != nil {
		return Listing{}, err
	}
	return l, nil
}

func (v firestoreValue) str() string {
	switch {
	case v.StringValue != nil:
		return *v.StringValue
	case v.IntegerValue != nil:
		return *v.IntegerValue
	case v.DoubleValue != nil:
		return strconv.FormatFloat(*v.DoubleValue, 'f', -1, 64)
	}
	return ""
}

// num accepts integers, doubles and numeric strings; anything else is 0.
func (v firestoreValue) num() float64 {
	switch {
	case v.DoubleValue != nil:
		return *v.DoubleValue
	case v.IntegerValue != nil:
		n, _ := strconv.ParseFloat(*v.IntegerValue, 64)
		return n
	case v.StringValue != nil:
		n, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(*v.StringValue), "$"), 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// timestamp accepts RFC 3339 timestamps and epoch milliseconds.
func (v firestoreValue) timestamp() time.Time {
	switch {
	case v.TimestampValue != nil:
		t, err := time.Parse(time.RFC3339Nano, *v.TimestampValue)
		if err == nil {
			return t
		}
	case v.IntegerValue != nil:
		ms, err := strconv.ParseInt(*v.IntegerValue, 10, 64)
		if err == nil && ms > 0 {
			return time.UnixMilli(ms).UTC()
		}
	case v.StringValue != nil:
		t, err := time.Parse(time.RFC3339Nano, *v.StringValue)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}
