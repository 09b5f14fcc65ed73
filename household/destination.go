package household

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// DESTINATION - Tagged union: another account, or free text
// =============================================================================

type DestinationKind string

const (
	DestinationAccount DestinationKind = "account"
	DestinationText    DestinationKind = "text"
)

// Destination says where a charge's money goes. Exactly one payload is
// meaningful, selected by Kind. Build values with ToAccount / ToText.
type Destination struct {
	Kind      DestinationKind
	AccountID string
	Text      string
}

func ToAccount(id string) *Destination { return &Destination{Kind: DestinationAccount, AccountID: id} }
func ToText(text string) *Destination  { return &Destination{Kind: DestinationText, Text: text} }

func (d *Destination) Clone() *Destination {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// Label is the display text: the account's display key or the free text.
func (d *Destination) Label(st *State) string {
	if d == nil {
		return ""
	}
	switch d.Kind {
	case DestinationAccount:
		return st.AccountName(d.AccountID)
	case DestinationText:
		return d.Text
	default:
		return ""
	}
}

// RoutedAccount returns the account a destination credits, if any.
func (d *Destination) RoutedAccount() (string, bool) {
	if d == nil {
		return "", false
	}
	switch d.Kind {
	case DestinationAccount:
		return d.AccountID, d.AccountID != ""
	case DestinationText:
		return "", false
	default:
		return "", false
	}
}

type destinationJSON struct {
	Kind      DestinationKind `json:"kind"`
	AccountID string          `json:"accountId,omitempty"`
	Text      string          `json:"text,omitempty"`
}

func (d Destination) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case DestinationAccount:
		return json.Marshal(destinationJSON{Kind: d.Kind, AccountID: d.AccountID})
	case DestinationText:
		return json.Marshal(destinationJSON{Kind: d.Kind, Text: d.Text})
	default:
		return nil, fmt.Errorf("destination: unknown kind %q", d.Kind)
	}
}

func (d *Destination) UnmarshalJSON(b []byte) error {
	var raw destinationJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case DestinationAccount:
		*d = Destination{Kind: DestinationAccount, AccountID: raw.AccountID}
	case DestinationText:
		*d = Destination{Kind: DestinationText, Text: raw.Text}
	default:
		return fmt.Errorf("destination: unknown kind %q", raw.Kind)
	}
	return nil
}
