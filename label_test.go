package skilltax

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLabelCompare(t *testing.T) {
	labels := []Label{{2, 0}, {0, 3}, {1, 1}, {0, 1}, {1, 0}}
	slices.SortFunc(labels, Label.Compare)
	require.Equal(t, []Label{{0, 1}, {0, 3}, {1, 0}, {1, 1}, {2, 0}}, labels)
}

func TestLabelLegacyID(t *testing.T) {
	id, err := Label{ClassID: 3, SubclassID: 1}.LegacyID()
	require.NoError(t, err)
	require.InDelta(t, 3.1, id, 1e-12)

	id, err = Label{ClassID: 3, SubclassID: 9}.LegacyID()
	require.NoError(t, err)
	require.GreaterOrEqual(t, id, 3.0)
	require.Less(t, id, 4.0)

	_, err = Label{ClassID: 3, SubclassID: 10}.LegacyID()
	require.ErrorIs(t, err, ErrSubclassOverflow)

	_, err = LegacyIDs([]Label{{0, 0}, {3, 10}})
	require.ErrorIs(t, err, ErrSubclassOverflow)
}

func TestLabelTextRoundTrip(t *testing.T) {
	data, err := json.Marshal(map[Label]string{{ClassID: 12, SubclassID: 10}: "data science"})
	require.NoError(t, err)
	require.JSONEq(t, `{"12.10": "data science"}`, string(data))

	var decoded map[Label]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "data science", decoded[Label{ClassID: 12, SubclassID: 10}])

	var l Label
	require.Error(t, l.UnmarshalText([]byte("12")))
	require.Error(t, l.UnmarshalText([]byte("a.1")))
}

func TestEncodeLabels(t *testing.T) {
	labels, err := EncodeLabels([]int{0, 1, 1}, []int{0, 0, 1})
	require.NoError(t, err)
	require.Equal(t, []Label{{0, 0}, {1, 0}, {1, 1}}, labels)

	_, err = EncodeLabels([]int{0, 1}, []int{0})
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = EncodeLabels([]int{-1}, []int{0})
	require.ErrorIs(t, err, ErrConfiguration)
}
