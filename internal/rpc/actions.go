package rpc

import (
	"strings"

	"github.com/nhle/clinic-chat/internal/logging"
)

// Chat actions understood by the backend.
const (
	ActionSendMessage       = "chat.sendMessage"
	ActionListMessages      = "chat.listMessages"
	ActionListMessagesSince = "chat.listMessagesSince"
	ActionMarkAsRead        = "chat.markAsRead"
	ActionGetUnreadSummary  = "chat.getUnreadSummary"
	ActionListUsers         = "usuarios.listAll"
)

// legacyPrefixes maps retired action namespaces to their replacements.
var legacyPrefixes = []struct {
	from string
	to   string
}{
	{from: "Medicamentos.", to: "Remedios."},
	{from: "Medicamentos_", to: "Remedios_"},
}

// NormalizeAction trims the action name and rewrites legacy namespaces.
// An empty action is a ValidationError.
func NormalizeAction(action string) (string, error) {
	name := strings.TrimSpace(action)
	if name == "" {
		return "", &ValidationError{Field: "action", Message: "must not be empty"}
	}

	for _, p := range legacyPrefixes {
		if strings.HasPrefix(name, p.from) {
			rewritten := p.to + strings.TrimPrefix(name, p.from)
			log := logging.Component("rpc")
			log.Warn().
				Str("from", name).
				Str("to", rewritten).
				Msg("rewriting legacy action name")
			return rewritten, nil
		}
	}
	return name, nil
}
