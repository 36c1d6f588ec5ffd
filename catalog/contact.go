package catalog

import (
	"net/url"
	"strings"
)

// DefaultWhatsAppPhone is the phone number quotes are requested from
const DefaultWhatsAppPhone = "5519994083609"

// Contact builds WhatsApp links for quote requests
type Contact struct {
	Phone string
}

// Links are the contact links of the storefront
type Links struct {
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp"`
	Message  string `json:"message"`
}

const mainMessage = "Olá! Gostaria de solicitar um orçamento para impressão 3D personalizada."

// Link returns the wa.me link with a prefilled message
func (c Contact) Link(message string) string {
	return "https://wa.me/" + c.Phone + "?text=" + encodeURIComponent(message)
}

// MainLink returns the link for a general quote request
func (c Contact) MainLink() string {
	return c.Link(mainMessage)
}

// ProductLink returns the link for a quote on a specific product
func (c Contact) ProductLink(name string) string {
	return c.Link("Olá! Gostaria de um orçamento para o produto: " + name)
}

// Links returns the storefront contact links
func (c Contact) Links() Links {
	return Links{Phone: c.Phone, WhatsApp: c.MainLink(), Message: mainMessage}
}

var uriComponentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeURIComponent escapes like the JavaScript function of the same name
func encodeURIComponent(s string) string {
	return uriComponentUnescaper.Replace(url.QueryEscape(s))
}
