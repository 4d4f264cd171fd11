package domain

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Recipient is one channel address subscribed to a section.
type Recipient struct {
	Channel Channel `json:"channel"`
	Address string  `json:"address"`
}

// SMS returns a phone-number recipient.
func SMS(number string) Recipient { return Recipient{Channel: ChannelSMS, Address: number} }

// Email returns an email recipient.
func Email(address string) Recipient { return Recipient{Channel: ChannelEmail, Address: address} }

func (r Recipient) String() string { return string(r.Channel) + ":" + r.Address }

// Subscription is the set of recipients waiting on one section.
type Subscription struct {
	Code       Code        `json:"section_code"`
	Title      string      `json:"course_title"`
	Recipients []Recipient `json:"recipients"`
}

// Eligible reports whether the subscription has anyone to notify.
func (s Subscription) Eligible() bool { return len(s.Recipients) > 0 }

// CodesOf returns the set of subscribed codes.
func CodesOf(subs map[Code]Subscription) CodeSet {
	set := make(CodeSet, len(subs))
	for c := range subs {
		set.Add(c)
	}
	return set
}

// SplitRecipients separates recipients by channel.
func SplitRecipients(rs []Recipient) (phones, emails []string) {
	for _, r := range rs {
		switch r.Channel {
		case ChannelSMS:
			phones = append(phones, r.Address)
		case ChannelEmail:
			emails = append(emails, r.Address)
		}
	}
	return phones, emails
}

// JoinRecipients is the inverse of SplitRecipients.
func JoinRecipients(phones, emails []string) []Recipient {
	out := make([]Recipient, 0, len(phones)+len(emails))
	for _, p := range phones {
		if p != "" {
			out = append(out, SMS(p))
		}
	}
	for _, e := range emails {
		if e != "" {
			out = append(out, Email(e))
		}
	}
	return out
}
