package session

import (
	"localcoder/internal/logging"
	"localcoder/internal/types"
)

// Trimmer shortens a conversation between turns.
type Trimmer interface {
	Trim(conv *types.Conversation) int
}

// KeepRecent drops all but the system message and the Keep most recent
// messages once the conversation grows past MaxLength.
type KeepRecent struct {
	MaxLength int
	Keep      int
}

// Trim implements Trimmer.
func (k KeepRecent) Trim(conv *types.Conversation) int {
	if k.MaxLength <= 0 || conv.Len() <= k.MaxLength {
		return 0
	}
	dropped := conv.Trim(k.Keep)
	if dropped > 0 {
		logging.Session("Trimmed conversation: dropped %d messages, kept %d", dropped, conv.Len())
	}
	return dropped
}
