package skilltax

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// legacySubclassLimit is the number of subclasses representable by the
// class + subclass/10 float encoding.
const legacySubclassLimit = 10

// Label is the two-level position of an item in the taxonomy.
type Label struct {
	ClassID    int `json:"class_id" db:"class_id"`
	SubclassID int `json:"subclass_id" db:"subclass_id"`
}

// Compare orders labels by class, then by subclass.
func (l Label) Compare(other Label) int {
	if c := cmp.Compare(l.ClassID, other.ClassID); c != 0 {
		return c
	}
	return cmp.Compare(l.SubclassID, other.SubclassID)
}

func (l Label) String() string {
	return strconv.Itoa(l.ClassID) + "." + strconv.Itoa(l.SubclassID)
}

// LegacyID returns the composite class + subclass/10 identifier.
// Subclass indices above 9 would collide with other ids and are rejected.
func (l Label) LegacyID() (float64, error) {
	if l.SubclassID < 0 || l.SubclassID >= legacySubclassLimit {
		return 0, fmt.Errorf("label %s: %w", l, ErrSubclassOverflow)
	}
	return float64(l.ClassID) + float64(l.SubclassID)/legacySubclassLimit, nil
}

// MarshalText renders the label as "class.subclass" so it can key JSON objects.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText parses a label rendered by MarshalText.
func (l *Label) UnmarshalText(text []byte) error {
	classPart, subPart, ok := strings.Cut(string(text), ".")
	if !ok {
		return fmt.Errorf("malformed label %q", text)
	}
	classID, err := strconv.Atoi(classPart)
	if err != nil {
		return fmt.Errorf("malformed class in label %q: %w", text, err)
	}
	subclassID, err := strconv.Atoi(subPart)
	if err != nil {
		return fmt.Errorf("malformed subclass in label %q: %w", text, err)
	}
	l.ClassID, l.SubclassID = classID, subclassID
	return nil
}

// EncodeLabels pairs class and subclass assignments into one label per item.
func EncodeLabels(classes, subclasses []int) ([]Label, error) {
	if len(classes) != len(subclasses) {
		return nil, fmt.Errorf("%d class ids for %d subclass ids: %w", len(classes), len(subclasses), ErrConfiguration)
	}
	labels := make([]Label, len(classes))
	for i := range classes {
		if classes[i] < 0 || subclasses[i] < 0 {
			return nil, fmt.Errorf("item %d has negative id (%d, %d): %w", i, classes[i], subclasses[i], ErrConfiguration)
		}
		labels[i] = Label{ClassID: classes[i], SubclassID: subclasses[i]}
	}
	return labels, nil
}

// LegacyIDs encodes every label as a class + subclass/10 float.
func LegacyIDs(labels []Label) ([]float64, error) {
	ids := make([]float64, len(labels))
	for i, l := range labels {
		id, err := l.LegacyID()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}
