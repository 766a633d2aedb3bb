package notify

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key names a catalog message.
type Key string

const (
	KeyStopwatchExists    Key = "onlyonestopwatch"
	KeyTimeOutsideWindow  Key = "timemustbebetweenstartandendtime"
	KeyInSkipSegment      Key = "interactionisbetweentheskipsegment"
	KeySaved              Key = "saved"
	KeySaveFailed         Key = "savefailed"
	KeyUnsavedChange      Key = "unsavedchange"
	KeyUnsavedChangeQuery Key = "unsavedchangeconfirm"
	KeyGroupTooSmall      Key = "grouptoosmall"
	KeyFormFailed         Key = "formfailed"
	KeyInvalidTimestamp   Key = "invalidtimestamp"
)

// messages per language. Arguments are positional printf verbs.
var messages = map[language.Tag]map[Key]string{
	language.English: {
		KeyStopwatchExists:    "Only one stopwatch is allowed per annotation.",
		KeyTimeOutsideWindow:  "Time must be between %[1]s and %[2]s.",
		KeyInSkipSegment:      "The interaction falls inside a skip segment.",
		KeySaved:              "Annotation saved.",
		KeySaveFailed:         "Failed to save the annotation: %[1]s",
		KeyUnsavedChange:      "Unsaved changes",
		KeyUnsavedChangeQuery: "You have unsaved changes. Do you want to save them before closing?",
		KeyGroupTooSmall:      "Select at least two items to group.",
		KeyFormFailed:         "The form could not be loaded: %[1]s",
		KeyInvalidTimestamp:   "%[1]q is not a valid time. Use hh:mm:ss.",
	},
	language.German: {
		KeyStopwatchExists:    "Pro Annotation ist nur eine Stoppuhr erlaubt.",
		KeyTimeOutsideWindow:  "Die Zeit muss zwischen %[1]s und %[2]s liegen.",
		KeyInSkipSegment:      "Die Interaktion liegt in einem übersprungenen Abschnitt.",
		KeySaved:              "Annotation gespeichert.",
		KeySaveFailed:         "Die Annotation konnte nicht gespeichert werden: %[1]s",
		KeyUnsavedChange:      "Ungespeicherte Änderungen",
		KeyUnsavedChangeQuery: "Es gibt ungespeicherte Änderungen. Vor dem Schließen speichern?",
		KeyGroupTooSmall:      "Zum Gruppieren mindestens zwei Elemente auswählen.",
		KeyFormFailed:         "Das Formular konnte nicht geladen werden: %[1]s",
		KeyInvalidTimestamp:   "%[1]q ist keine gültige Zeit. Format hh:mm:ss verwenden.",
	},
}

// Catalog formats messages for one language.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// NewCatalog builds the catalog for the best match of locale, falling back
// to English. An empty locale means English.
func NewCatalog(locale string) (*Catalog, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	var supported []language.Tag
	for tag, msgs := range messages {
		supported = append(supported, tag)
		for key, msg := range msgs {
			if err := b.SetString(tag, string(key), msg); err != nil {
				return nil, fmt.Errorf("failed to register message %q: %w", key, err)
			}
		}
	}
	tag := language.English
	if locale != "" {
		want, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("failed to parse locale %q: %w", locale, err)
		}
		tags := append([]language.Tag{language.English}, supported...)
		if _, index, confidence := language.NewMatcher(tags).Match(want); confidence != language.No {
			tag = tags[index]
		}
	}
	return &Catalog{tag: tag, printer: message.NewPrinter(tag, message.Catalog(b))}, nil
}

// Language is the matched language.
func (c *Catalog) Language() language.Tag { return c.tag }

// Text formats the message for key.
func (c *Catalog) Text(key Key, args ...any) string {
	return c.printer.Sprintf(string(key), args...)
}

// New builds a notification for key.
func (c *Catalog) New(level Level, key Key, args ...any) Notification {
	return Notification{Level: level, Key: key, Message: c.Text(key, args...)}
}
