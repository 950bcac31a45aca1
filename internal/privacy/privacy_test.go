package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "Plaintiff John Smith (john@smith.test, 555-123-4567, SSN 123-45-6789) " +
	"lives at 12 Elm Street and sued Acme Widgets Inc. for $25,000.00. " +
	"Judge Harper presides. Contact john@smith.test again."

func TestAnonymizeReplacesEachCategory(t *testing.T) {
	res := Anonymize(sample)

	assert.NotContains(t, res.Text, "john@smith.test")
	assert.NotContains(t, res.Text, "123-45-6789")
	assert.NotContains(t, res.Text, "555-123-4567")
	assert.NotContains(t, res.Text, "$25,000.00")
	assert.NotContains(t, res.Text, "12 Elm Street")
	assert.NotContains(t, res.Text, "Acme Widgets Inc.")
	assert.NotContains(t, res.Text, "John Smith")
	assert.NotContains(t, res.Text, "Judge Harper")
	assert.Contains(t, res.Text, "Plaintiff [PERSON_")

	assert.Equal(t, "john@smith.test", res.Mapping["[EMAIL_1]"])
	assert.Equal(t, 1, res.Counts[CategoryEmail], "repeated email reuses its token")
	assert.Equal(t, 2, res.Counts[CategoryPerson])
}

func TestAnonymizeIsDeterministic(t *testing.T) {
	first := Anonymize(sample)
	second := Anonymize(sample)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Mapping, second.Mapping)
}

func TestSessionCountersSpanCalls(t *testing.T) {
	s := NewSession()
	a := s.Anonymize("mail a@x.test")
	b := s.Anonymize("mail b@x.test and a@x.test")
	assert.Equal(t, "mail [EMAIL_1]", a.Text)
	assert.Equal(t, "mail [EMAIL_2] and [EMAIL_1]", b.Text)
}

func TestRestoreRoundTrip(t *testing.T) {
	s := NewSession()
	res := s.Anonymize(sample)
	require.NotEqual(t, sample, res.Text)
	assert.Equal(t, sample, s.Restore(res.Text))
	assert.Equal(t, sample, Restore(res.Text, res.Mapping))
}

func TestRestoreDistinguishesTenPlusTokens(t *testing.T) {
	mapping := map[string]string{"[PERSON_1]": "Ann", "[PERSON_10]": "Bob"}
	assert.Equal(t, "Ann met Bob", Restore("[PERSON_1] met [PERSON_10]", mapping))
}

func TestAnonymizeLeavesCleanTextAlone(t *testing.T) {
	res := Anonymize("the contract terminates on notice")
	assert.Equal(t, "the contract terminates on notice", res.Text)
	assert.Empty(t, res.Mapping)
}

func TestRoleWordsAndSentencePeriodsStayOutside(t *testing.T) {
	res := Anonymize("Plaintiff Acme Widgets Inc sued.")
	assert.Equal(t, "Plaintiff [COMPANY_1] sued.", res.Text)
	assert.Equal(t, "Acme Widgets Inc", res.Mapping["[COMPANY_1]"])

	res = Anonymize("She moved to 12 Oak Street. Then 7 Pine St. again.")
	assert.Equal(t, "She moved to [ADDRESS_1]. Then [ADDRESS_2] again.", res.Text)
	assert.Equal(t, "12 Oak Street", res.Mapping["[ADDRESS_1]"])
	assert.Equal(t, "7 Pine St.", res.Mapping["[ADDRESS_2]"])
}
