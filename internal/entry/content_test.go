package entry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiveMinuteRoundTrip(t *testing.T) {
	docs := []FiveMinute{
		{},
		{
			Gratitude:    [3]string{"coffee", "sunlight", "a long walk"},
			Intentions:   [3]string{"ship it", "", "call mom"},
			Affirmations: "I am patient",
			Highlights:   [3]string{"", "lunch with Sam", ""},
			Improvement:  "sleep earlier",
		},
		{Affirmations: `quotes "and" \ backslashes`, Improvement: "ünïcödé ✓"},
	}
	for _, d := range docs {
		require.Equal(t, d, ParseFiveMinute(d.Serialize()))
	}
}

func TestFiveMinuteSerializeFieldOrder(t *testing.T) {
	got := FiveMinute{}.Serialize()
	assert.Equal(t, `{"gratitude":["","",""],"intentions":["","",""],"affirmations":"","highlights":["","",""],"improvement":""}`, got)
}

func TestParseFiveMinuteFallsBackToEmpty(t *testing.T) {
	for _, in := range []string{"not json", "", "[1,2,3]", `{"gratitude": 7}`} {
		d := ParseFiveMinute(in)
		assert.True(t, d.IsEmpty(), "input %q", in)
		assert.Equal(t, [3]string{"", "", ""}, d.Gratitude)
		assert.Equal(t, "", d.Affirmations)
	}
}

func TestDecodeSelectsVariant(t *testing.T) {
	free := Decode(TemplateFree, "just text")
	require.IsType(t, FreeText{}, free)
	assert.Equal(t, "just text", free.Serialize())

	five := Decode(TemplateFiveMinute, `{"gratitude":["a","",""]}`)
	require.IsType(t, FiveMinute{}, five)
	assert.Equal(t, "a", five.(FiveMinute).Gratitude[0])
}

func TestPreview(t *testing.T) {
	e := &Entry{Template: TemplateFree, Content: "Went for a walk"}
	assert.Equal(t, "Went for a walk", e.Preview())

	d := FiveMinute{
		Gratitude:  [3]string{"", "tea", "rain"},
		Highlights: [3]string{"swim", " ", "book"},
	}
	e = &Entry{Template: TemplateFiveMinute, Content: d.Serialize()}
	assert.Equal(t, "tea · rain · swim · book", e.Preview())

	e = &Entry{Template: TemplateFiveMinute, Content: FiveMinute{Improvement: "x"}.Serialize()}
	assert.Equal(t, previewPlaceholder, e.Preview())

	e = &Entry{Template: TemplateFiveMinute, Content: "garbage"}
	assert.Equal(t, previewPlaceholder, e.Preview())
}

func TestParseTemplateAndMood(t *testing.T) {
	tpl, err := ParseTemplate("")
	require.NoError(t, err)
	assert.Equal(t, TemplateFree, tpl)
	tpl, err = ParseTemplate("five-minute")
	require.NoError(t, err)
	assert.Equal(t, TemplateFiveMinute, tpl)
	_, err = ParseTemplate("bullet")
	require.ErrorIs(t, err, ErrValidation)

	for m := MinMood; m <= MaxMood; m++ {
		require.NoError(t, ValidateMood(m))
	}
	require.ErrorIs(t, ValidateMood(0), ErrValidation)
	require.ErrorIs(t, ValidateMood(6), ErrValidation)
}

func TestChangesApplyKeepsTemplateWhenNil(t *testing.T) {
	created := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	e := &Entry{Template: TemplateFiveMinute, Mood: 2, CreatedAt: created, UpdatedAt: created}
	now := created.Add(time.Hour)
	Changes{Content: "c", Mood: 4}.Apply(e, now)
	assert.Equal(t, TemplateFiveMinute, e.Template)
	assert.Equal(t, 4, e.Mood)
	assert.Equal(t, now, e.UpdatedAt)
	assert.Equal(t, created, e.CreatedAt)

	free := TemplateFree
	Changes{Content: "c", Mood: 4, Template: &free}.Apply(e, now)
	assert.Equal(t, TemplateFree, e.Template)
}

func TestDecodeFiveMinuteIsStrict(t *testing.T) {
	doc := FiveMinute{Gratitude: [3]string{"tea", "", ""}, Improvement: "rest"}
	got, err := DecodeFiveMinute(doc.Serialize())
	require.NoError(t, err)
	require.Equal(t, doc, got)

	for _, bad := range []string{"", "plain words", `{"gratitude":`, `{"extra":1}`, `{} {}`} {
		_, err := DecodeFiveMinute(bad)
		require.ErrorIs(t, err, ErrValidation, bad)
		// the lenient reader still maps it to the empty document
		require.True(t, ParseFiveMinute(bad).IsEmpty(), bad)
	}
}
