// Package menu renders the consultation menu shown to approved users.
package menu

import (
	"strings"

	"github.com/Alqaedgcb/legal-telegram-bot/internal/transport"
)

const tokenPrefix = "menu:"

const (
	ItemConsultation = "consultation"
	ItemServices     = "services"
	ItemAbout        = "about"
	ItemAppointment  = "appointment"
)

var sections = map[string]string{
	ItemConsultation: "📞 Describe your legal issue in detail.\nOne of our lawyers will reply to you shortly.",
	ItemServices: "⚖️ Our legal services:\n\n" +
		"• 📝 Contract drafting\n" +
		"• 🏛️ Court representation\n" +
		"• 💼 Legal consultations\n" +
		"• 📄 Legal certification\n" +
		"• ⚔️ Commercial and real-estate cases",
	ItemAbout: "🏢 The specialized law office:\n\n" +
		"We are a team of certified lawyers with long-standing experience.\n\n" +
		"📞  +966123456789\n" +
		"📧  info@lawfirm.com",
	ItemAppointment: "📝 To book an appointment, send your name, the case type and the preferred date.",
}

// Main returns the welcome text and the menu buttons.
func Main() (string, []transport.Action) {
	text := "👋 Welcome to the legal consultation bot.\n\nChoose the service you need:"
	actions := []transport.Action{
		{Label: "📞 Instant legal consultation", Token: Token(ItemConsultation)},
		{Label: "⚖️ Types of legal services", Token: Token(ItemServices)},
		{Label: "🏢 About the office and lawyers", Token: Token(ItemAbout)},
		{Label: "📝 Book a consultation", Token: Token(ItemAppointment)},
	}
	return text, actions
}

// Section returns the text for a menu item.
func Section(item string) (string, bool) {
	text, ok := sections[item]
	return text, ok
}

func Token(item string) string {
	return tokenPrefix + item
}

// ParseToken recovers the menu item from a button token. Returns false for
// tokens from other button families.
func ParseToken(token string) (string, bool) {
	item, ok := strings.CutPrefix(token, tokenPrefix)
	if !ok {
		return "", false
	}
	if _, known := sections[item]; !known {
		return "", false
	}
	return item, true
}
