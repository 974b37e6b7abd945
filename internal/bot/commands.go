package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Command is a bot command shown in the Telegram command menu.
type Command struct {
	Name        string
	Description string
}

var botCommands = []Command{
	{Name: "start", Description: "Start a session"},
	{Name: "price", Description: "Suggest a price: category | condition | title"},
	{Name: "categories", Description: "List marketplace categories"},
	{Name: "help", Description: "How to use the bot"},
	{Name: "stop", Description: "End your session"},
}

// RegisterCommands sets the bot's command menu in Telegram.
func RegisterCommands(tg BotAPI) {
	commands := make([]tgbotapi.BotCommand, len(botCommands))
	for i, cmd := range botCommands {
		commands[i] = tgbotapi.BotCommand{
			Command:     cmd.Name,
			Description: cmd.Description,
		}
	}

	config := tgbotapi.NewSetMyCommands(commands...)
	if _, err := tg.Request(config); err != nil {
		log.Error().Err(err).Msg("failed to set bot commands")
	} else {
		log.Info().Int("count", len(commands)).Msg("registered bot commands")
	}
}
