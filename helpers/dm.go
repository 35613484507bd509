package helpers

import (
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// DirectMessenger is the part of the discord session needed to send DMs
type DirectMessenger interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// SendDirectMessage opens a DM channel with $userID and sends $message
func SendDirectMessage(s DirectMessenger, userID string, message *discordgo.MessageSend) error {
	channel, err := s.UserChannelCreate(userID)
	if err != nil {
		return errors.Wrap(err, "unable to open dm channel")
	}

	_, err = s.ChannelMessageSendComplex(channel.ID, message)
	if err != nil {
		return errors.Wrap(err, "unable to send dm")
	}

	return nil
}
