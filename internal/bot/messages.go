package bot

const (
	MsgWelcome = `
		Hi! I help you price items for the campus marketplace.

		Send me a photo of something you want to sell, or use
		/price <category> | <condition> | <title>

		Type /help for details.`

	MsgHelp = `
		*Pricing an item*
		/price <category> | <condition> | <title> [| description]
		Example: /price Textbooks | Good | Calculus Early Transcendentals

		*From a photo*
		Send one or more photos of the item. I will suggest a title and a price.

		*Other commands*
		/categories lists the marketplace categories
		/stop ends your session`

	MsgCategories     = "*Categories*\n%s\n\n*Conditions*\n%s"
	MsgPriceUsage     = "Usage: /price <category> | <condition> | <title> [| description]"
	MsgSessionEnded   = "Session ended. Send /start to begin again."
	MsgNoSession      = "You have no active session."
	MsgUnknownCommand = "Unknown command. Type /help to see what I can do."
	MsgSendPhotoHint  = "Send a photo of the item, or type /help."
	MsgAnalyzingPhoto = "Looking at your photo..."
	MsgVisionDisabled = "Photo analysis is not available right now. Use /price instead."
	MsgPhotoFailed    = "Sorry, I couldn't analyze that photo. Try another one or use /price."
	MsgUnexpectedErr  = "Something went wrong. Please try again."
)

const msgAnalysis = `
	*Suggested price: $%d*
	Range: $%d to $%d
	Confidence: %s

	%s`

const msgPhotoAnalysis = `
	*%s*
	%s

	Category: %s
	Condition: %s`
