package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/campusconnect/campusconnect/internal/llm"
	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/campusconnect/campusconnect/internal/session"
	"github.com/campusconnect/campusconnect/internal/storage"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type botApiMock struct {
	mock.Mock
}

func (m *botApiMock) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *botApiMock) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *botApiMock) GetFileDirectURL(fileID string) (string, error) {
	args := m.Called(fileID)
	return args.Get(0).(string), args.Error(1)
}

type advisorMock struct {
	mock.Mock
}

func (m *advisorMock) Analyze(ctx context.Context, req pricing.Request) pricing.PriceAnalysis {
	args := m.Called(ctx, req)
	return args.Get(0).(pricing.PriceAnalysis)
}

type analyzerMock struct {
	mock.Mock
}

func (m *analyzerMock) AnalyzeImages(ctx context.Context, images [][]byte) (*llm.AnalysisResult, error) {
	args := m.Called(ctx, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.AnalysisResult), args.Error(1)
}

var testCategories = []string{"Electronics", "Furniture", "Textbooks"}

var testAnalysis = pricing.PriceAnalysis{
	SuggestedPrice: 45,
	PriceRange:     pricing.PriceRange{Min: 30, Max: 60},
	Confidence:     pricing.ConfidenceMedium,
	Reasoning:      "Based on 4 similar listings",
	SimilarListings: []pricing.SimilarListing{
		{Title: "Calculus 8th edition", Price: 50, Condition: pricing.ConditionGood, DaysAgo: 2},
	},
}

func setup(t *testing.T) (int64, *botApiMock, *advisorMock, *Bot, *session.Manager) {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessions := session.NewManager(store)
	tg := new(botApiMock)
	advisor := new(advisorMock)
	return int64(1), tg, advisor, NewBot(tg, advisor, sessions, testCategories), sessions
}

func makeUpdateWithMessageText(userId int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      &tgbotapi.User{ID: userId},
			Chat:      &tgbotapi.Chat{ID: userId},
			Text:      text,
		},
	}
}

func makeMessage(userId int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(userId, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

func expectTyping(tg *botApiMock, userId int64) {
	tg.On("Request", tgbotapi.NewChatAction(userId, tgbotapi.ChatTyping)).Return(&tgbotapi.APIResponse{Ok: true}, nil)
}

func TestHandleUpdate_Start(t *testing.T) {
	userId, tg, _, bot, sessions := setup(t)

	tg.On("Send", makeMessage(userId, formatReplyText(MsgWelcome))).Return(tgbotapi.Message{}, nil).Twice()

	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "/start"))
	first := bot.userSessions[userId]
	require.NotEmpty(t, first)

	sess, err := sessions.Get(first)
	require.NoError(t, err)
	assert.Equal(t, "telegram:1", sess.UserID)

	// /start again replaces the session
	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "/start@campus_bot"))
	second := bot.userSessions[userId]
	assert.NotEqual(t, first, second)

	_, err = sessions.Get(first)
	assert.ErrorIs(t, err, session.ErrNotFound)
	tg.AssertExpectations(t)
}

func TestHandleUpdate_Stop(t *testing.T) {
	userId, tg, _, bot, sessions := setup(t)

	tg.On("Send", makeMessage(userId, MsgNoSession)).Return(tgbotapi.Message{}, nil).Once()
	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "/stop"))

	tg.On("Send", makeMessage(userId, formatReplyText(MsgWelcome))).Return(tgbotapi.Message{}, nil).Once()
	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "/start"))
	id := bot.userSessions[userId]

	tg.On("Send", makeMessage(userId, MsgSessionEnded)).Return(tgbotapi.Message{}, nil).Once()
	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "/stop"))

	_, err := sessions.Get(id)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Empty(t, bot.userSessions)
	tg.AssertExpectations(t)
}

func TestHandleUpdate_Help(t *testing.T) {
	userId, tg, _, bot, _ := setup(t)

	tg.On("Send", makeMessage(userId, formatReplyText(MsgHelp))).Return(tgbotapi.Message{}, nil).Once()
	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "/help"))
	tg.AssertExpectations(t)
}

func TestHandleUpdate_Categories(t *testing.T) {
	userId, tg, _, bot, _ := setup(t)

	want := "*Categories*\n• Electronics\n• Furniture\n• Textbooks\n\n" +
		"*Conditions*\n• New\n• Like New\n• Good\n• Used\n• Fair"
	tg.On("Send", makeMessage(userId, want)).Return(tgbotapi.Message{}, nil).Once()
	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "/categories"))
	tg.AssertExpectations(t)
}

func TestHandleUpdate_Price(t *testing.T) {
	userId, tg, advisor, bot, _ := setup(t)

	wantReq := pricing.Request{
		Title:       "Calculus textbook",
		Category:    "Textbooks",
		Condition:   pricing.ConditionLikeNew,
		Description: "8th edition",
	}
	advisor.On("Analyze", mock.MatchedBy(func(ctx context.Context) bool {
		s, ok := session.FromContext(ctx)
		return ok && s.UserID == "telegram:1"
	}), wantReq).Return(testAnalysis).Once()
	expectTyping(tg, userId)
	tg.On("Send", makeMessage(userId, formatAnalysis(testAnalysis))).Return(tgbotapi.Message{}, nil).Once()

	bot.HandleUpdate(context.Background(),
		makeUpdateWithMessageText(userId, "/price textbooks | like new | Calculus textbook | 8th edition"))

	tg.AssertExpectations(t)
	advisor.AssertExpectations(t)
	assert.NotEmpty(t, bot.userSessions[userId], "price starts a session on demand")
}

func TestHandleUpdate_PriceUsage(t *testing.T) {
	userId, tg, advisor, bot, _ := setup(t)

	tg.On("Send", makeMessage(userId, MsgPriceUsage)).Return(tgbotapi.Message{}, nil).Twice()
	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "/price Textbooks | Good"))
	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "/price Textbooks | Good |  "))

	tg.AssertExpectations(t)
	advisor.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestHandleUpdate_TextAndUnknownCommand(t *testing.T) {
	userId, tg, _, bot, _ := setup(t)

	tg.On("Send", makeMessage(userId, MsgSendPhotoHint)).Return(tgbotapi.Message{}, nil).Once()
	tg.On("Send", makeMessage(userId, MsgUnknownCommand)).Return(tgbotapi.Message{}, nil).Once()

	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "how much is my desk worth?"))
	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "/sell"))
	tg.AssertExpectations(t)
}

func TestHandleUpdate_IgnoresUpdatesWithoutMessage(t *testing.T) {
	_, tg, _, bot, _ := setup(t)

	bot.HandleUpdate(context.Background(), tgbotapi.Update{})
	bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Text: "/start"}})
	tg.AssertNotCalled(t, "Send", mock.Anything)
}

func makePhotoUpdate(userId int64) tgbotapi.Update {
	update := makeUpdateWithMessageText(userId, "")
	update.Message.Photo = []tgbotapi.PhotoSize{
		{FileID: "small", Width: 90, Height: 90},
		{FileID: "large", Width: 1280, Height: 1280},
	}
	return update
}

func TestHandleUpdate_Photo(t *testing.T) {
	userId, tg, advisor, bot, _ := setup(t)

	image := []byte("\xff\xd8\xff\xe0jpeg")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(image)
	}))
	defer ts.Close()

	analyzer := new(analyzerMock)
	bot.SetAnalyzer(analyzer)

	item := &llm.ItemDescription{
		Title:       "Desk lamp",
		Description: "Adjustable LED desk lamp",
		Category:    "Furniture",
		Condition:   "Good",
	}
	expectTyping(tg, userId)
	tg.On("GetFileDirectURL", "large").Return(ts.URL+"/photo.jpg", nil).Once()
	analyzer.On("AnalyzeImages", mock.Anything, [][]byte{image}).Return(&llm.AnalysisResult{Item: item}, nil).Once()
	advisor.On("Analyze", mock.Anything, pricing.Request{
		Title:       "Desk lamp",
		Category:    "Furniture",
		Condition:   pricing.ConditionGood,
		Description: "Adjustable LED desk lamp",
	}).Return(testAnalysis).Once()

	want := formatPhotoAnalysis(item) + "\n\n" + formatAnalysis(testAnalysis)
	tg.On("Send", makeMessage(userId, want)).Return(tgbotapi.Message{}, nil).Once()

	bot.HandleUpdate(context.Background(), makePhotoUpdate(userId))

	tg.AssertExpectations(t)
	analyzer.AssertExpectations(t)
	advisor.AssertExpectations(t)
}

func TestHandleUpdate_PhotoWithoutAnalyzer(t *testing.T) {
	userId, tg, _, bot, _ := setup(t)

	tg.On("Send", makeMessage(userId, MsgVisionDisabled)).Return(tgbotapi.Message{}, nil).Once()
	bot.HandleUpdate(context.Background(), makePhotoUpdate(userId))
	tg.AssertExpectations(t)
}

func TestHandleUpdate_PhotoAnalysisFails(t *testing.T) {
	userId, tg, advisor, bot, _ := setup(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG"))
	}))
	defer ts.Close()

	analyzer := new(analyzerMock)
	bot.SetAnalyzer(analyzer)

	expectTyping(tg, userId)
	tg.On("GetFileDirectURL", "large").Return(ts.URL, nil)
	analyzer.On("AnalyzeImages", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded")).Once()
	analyzer.On("AnalyzeImages", mock.Anything, mock.Anything).Return(&llm.AnalysisResult{}, nil).Once()
	tg.On("Send", makeMessage(userId, MsgPhotoFailed)).Return(tgbotapi.Message{}, nil).Twice()

	bot.HandleUpdate(context.Background(), makePhotoUpdate(userId))
	bot.HandleUpdate(context.Background(), makePhotoUpdate(userId))

	tg.AssertExpectations(t)
	advisor.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestParsePriceArgs(t *testing.T) {
	tests := []struct {
		name   string
		args   string
		want   pricing.Request
		wantOk bool
	}{
		{
			name:   "canonical category",
			args:   "electronics | new | TI-84",
			want:   pricing.Request{Title: "TI-84", Category: "Electronics", Condition: pricing.ConditionNew},
			wantOk: true,
		},
		{
			name:   "unknown category kept",
			args:   "Bikes | Used | Road bike | needs new tires | and a bell",
			want:   pricing.Request{Title: "Road bike", Category: "Bikes", Condition: pricing.ConditionUsed, Description: "needs new tires | and a bell"},
			wantOk: true,
		},
		{
			name:   "unknown condition kept",
			args:   "Furniture | battered | Chair",
			want:   pricing.Request{Title: "Chair", Category: "Furniture", Condition: "battered"},
			wantOk: true,
		},
		{name: "too few parts", args: "Furniture | Chair"},
		{name: "empty", args: ""},
		{name: "missing category", args: " | Good | Chair"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parsePriceArgs(tt.args, testCategories)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatAnalysis(t *testing.T) {
	text := formatAnalysis(testAnalysis)
	assert.True(t, strings.HasPrefix(text, "*Suggested price: $45*\nRange: $30 to $60\nConfidence: Medium"))
	assert.Contains(t, text, "Based on 4 similar listings")
	assert.Contains(t, text, "• Calculus 8th edition: $50, Good, 2 days ago")

	bare := formatAnalysis(pricing.PriceAnalysis{SuggestedPrice: 20, Confidence: pricing.ConfidenceLow, Reasoning: "Estimated_price"})
	assert.NotContains(t, bare, "Similar listings")
	assert.Contains(t, bare, "Estimated\\_price")
}

func TestParseCommand(t *testing.T) {
	cmd, args := parseCommand("/Price@campus_bot  Furniture | Good | Desk ")
	assert.Equal(t, "/price", cmd)
	assert.Equal(t, "Furniture | Good | Desk", args)

	cmd, args = parseCommand("hello there")
	assert.Equal(t, "hello", cmd)
	assert.Equal(t, "there", args)
}
