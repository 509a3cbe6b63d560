package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
)

// Message is one outbound email. A non-empty HTMLBody upgrades the payload to
// multipart/alternative with the plaintext part first, so clients that cannot
// render HTML still show the transcript.
type Message struct {
	To       string
	From     string
	Subject  string
	Body     string
	HTMLBody string
}

// Encode renders the message as an RFC 822 byte stream and returns the
// base64url form the Gmail API expects in the raw field.
func (m Message) Encode() string {
	return base64.URLEncoding.EncodeToString(m.Bytes())
}

// Bytes renders the raw RFC 822 message.
func (m Message) Bytes() []byte {
	var buf bytes.Buffer
	header := func(name, value string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
	}

	header("To", m.To)
	if m.From != "" {
		header("From", m.From)
	}
	header("Subject", mime.QEncoding.Encode("UTF-8", m.Subject))
	header("MIME-Version", "1.0")

	if m.HTMLBody == "" {
		header("Content-Type", `text/plain; charset="UTF-8"`)
		buf.WriteString("\r\n")
		buf.WriteString(m.Body)
		return buf.Bytes()
	}

	var parts bytes.Buffer
	writer := multipart.NewWriter(&parts)
	plain, _ := writer.CreatePart(textproto.MIMEHeader{"Content-Type": {`text/plain; charset="UTF-8"`}})
	fmt.Fprint(plain, m.Body)
	html, _ := writer.CreatePart(textproto.MIMEHeader{"Content-Type": {`text/html; charset="UTF-8"`}})
	fmt.Fprint(html, m.HTMLBody)
	writer.Close()

	header("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", writer.Boundary()))
	buf.WriteString("\r\n")
	buf.Write(parts.Bytes())
	return buf.Bytes()
}
