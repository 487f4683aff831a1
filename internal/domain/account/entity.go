package account

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidUserID rejects externally supplied identifiers containing
// anything outside [A-Za-z0-9-_].
var ErrInvalidUserID = errors.New("invalid user identifier")

const (
	Users         = "Users"
	Notifications = "Notifications"
)

// User carries no profile data beyond its identity; it exists so that the
// first profile access can be detected (welcome flow) and so notifications
// have an owner to check against.
type User struct {
	ID string `json:"id"`
}

func (u *User) DocumentID() string      { return u.ID }
func (u *User) SetDocumentID(id string) { u.ID = id }
func (u *User) Collection() string      { return Users }

func BuildUserID(value string) string { return Users + "/" + value }

// ParseUserID validates an externally supplied opaque identifier and mints
// the document id for it. Only [A-Za-z0-9-_] is accepted; anything else is
// rejected rather than escaped.
func ParseUserID(external string) (string, error) {
	if external == "" {
		return "", ErrInvalidUserID
	}
	for _, c := range external {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return "", ErrInvalidUserID
		}
	}
	return BuildUserID(external), nil
}

type NotificationKind string

const (
	KindGeneral     NotificationKind = "General"
	KindBookOverdue NotificationKind = "BookOverdue"
)

// Notification is an informational message owned by one user. Ids are
// UUIDv7 so that insertion order and id order agree without a timestamp
// column.
type Notification struct {
	ID               string           `json:"id"`
	UserID           string           `json:"userId"`
	Kind             NotificationKind `json:"kind"`
	Text             string           `json:"text"`
	ReferencedItemID string           `json:"referencedItemId,omitempty"`
}

func (n *Notification) DocumentID() string      { return n.ID }
func (n *Notification) SetDocumentID(id string) { n.ID = id }
func (n *Notification) Collection() string      { return Notifications }

func BuildNotificationID(value string) string { return Notifications + "/" + value }

func NewNotificationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to v4
		// rather than refusing to notify.
		id = uuid.New()
	}
	return BuildNotificationID(id.String())
}
