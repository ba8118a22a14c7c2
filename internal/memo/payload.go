package memo

import "fmt"

// Payload is the closed set of memo interpretations. Handlers implement
// Visitor, so adding a kind breaks every handler until it is covered.
type Payload interface {
	Accept(v Visitor) error
	isPayload()
}

// Visitor handles each payload kind.
type Visitor interface {
	VisitTokenCreation(p TokenCreation) error
	VisitAdminAdded(p AdminAdded) error
	VisitTokensMinted(p TokensMinted) error
	VisitTokensTransferred(p TokensTransferred) error
	VisitUnknown(p Unknown) error
}

// Notice is shared by kinds whose only content is a note for the user.
type Notice struct {
	UserID int64
	Note   *string
}

// Text returns the note and whether one is present.
func (n Notice) Text() (string, bool) {
	if n.Note == nil || *n.Note == "" {
		return "", false
	}
	return *n.Note, true
}

// TokenCreation reports a deployed token back to its creator.
type TokenCreation struct {
	UserID int64
	Token  TokenInfo
}

// AdminAdded reports an admin grant.
type AdminAdded struct{ Notice }

// TokensMinted reports a mint.
type TokensMinted struct{ Notice }

// TokensTransferred reports a transfer.
type TokensTransferred struct{ Notice }

// Unknown carries a kind this build does not understand.
type Unknown struct {
	Kind   Kind
	UserID int64
}

func (p TokenCreation) Accept(v Visitor) error     { return v.VisitTokenCreation(p) }
func (p AdminAdded) Accept(v Visitor) error        { return v.VisitAdminAdded(p) }
func (p TokensMinted) Accept(v Visitor) error      { return v.VisitTokensMinted(p) }
func (p TokensTransferred) Accept(v Visitor) error { return v.VisitTokensTransferred(p) }
func (p Unknown) Accept(v Visitor) error           { return v.VisitUnknown(p) }

func (TokenCreation) isPayload()     {}
func (AdminAdded) isPayload()        {}
func (TokensMinted) isPayload()      {}
func (TokensTransferred) isPayload() {}
func (Unknown) isPayload()           {}

// Payload interprets m according to its kind. A token-creation memo whose
// note is missing or not valid token metadata is an error.
func (m Memo) Payload() (Payload, error) {
	notice := Notice{UserID: m.UserID, Note: m.Note}
	switch m.Kind {
	case KindTokenCreation:
		if m.Note == nil {
			return nil, fmt.Errorf("%w: note_to_user", ErrMissingField)
		}
		info, err := DecodeTokenInfo(*m.Note)
		if err != nil {
			return nil, err
		}
		return TokenCreation{UserID: m.UserID, Token: info}, nil
	case KindAdminAdded:
		return AdminAdded{notice}, nil
	case KindTokensMinted:
		return TokensMinted{notice}, nil
	case KindTokensTransferred:
		return TokensTransferred{notice}, nil
	default:
		return Unknown{Kind: m.Kind, UserID: m.UserID}, nil
	}
}
