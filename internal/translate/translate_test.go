package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, Spanish, DetectLanguage("El demandante presentó la demanda ante el tribunal"))
	assert.Equal(t, English, DetectLanguage("The plaintiff filed a complaint"))
	assert.Equal(t, English, DetectLanguage("  "))
}

func TestEmbeddedDictionariesLoad(t *testing.T) {
	tr, err := New(nil)
	require.NoError(t, err)
	assert.Greater(t, tr.enToEs.Len(), 50)
	assert.Greater(t, tr.esToEn.Len(), 50)
}

func TestTranslateToSpanishPreservesCaseAndPrefersLongestPhrase(t *testing.T) {
	tr, err := New(nil)
	require.NoError(t, err)

	res, err := tr.Translate(context.Background(), "The Plaintiff signed the Attorney-Client Privilege waiver.", Spanish, false)
	require.NoError(t, err)
	assert.Equal(t, "El Demandante firmado el Secreto profesional waiver.", res.Text)
	assert.Equal(t, English, res.SourceLanguage)
	assert.Equal(t, 5, res.Replacements)

	res, err = tr.Translate(context.Background(), "BREACH OF CONTRACT", Spanish, false)
	require.NoError(t, err)
	assert.Equal(t, "INCUMPLIMIENTO DE CONTRATO", res.Text)
}

func TestTranslateWholeWordsOnly(t *testing.T) {
	tr, err := New(nil)
	require.NoError(t, err)
	res, err := tr.Translate(context.Background(), "courtesy contracts", Spanish, false)
	require.NoError(t, err)
	assert.Equal(t, "courtesy contracts", res.Text)
	assert.Zero(t, res.Replacements)
}

func TestTranslateToEnglish(t *testing.T) {
	tr, err := New(nil)
	require.NoError(t, err)
	res, err := tr.Translate(context.Background(), "El demandado firmó el contrato", English, false)
	require.NoError(t, err)
	assert.Equal(t, Spanish, res.SourceLanguage)
	assert.Equal(t, "The defendant firmó the contract", res.Text)
}

func TestTranslateSameLanguageIsUnchanged(t *testing.T) {
	tr, err := New(nil)
	require.NoError(t, err)
	res, err := tr.Translate(context.Background(), "The contract is signed", English, true)
	require.NoError(t, err)
	assert.Equal(t, "The contract is signed", res.Text)
	assert.False(t, res.Enhanced)
}

func TestTranslateRejectsUnknownTarget(t *testing.T) {
	tr, err := New(nil)
	require.NoError(t, err)
	_, err = tr.Translate(context.Background(), "hello", "fr", false)
	assert.Error(t, err)
}

type stubGenerator struct {
	out string
	err error
}

func (s stubGenerator) GenerateText(context.Context, string, string) (string, error) {
	return s.out, s.err
}

func TestEnhanceUsesGeneratorAndFallsBack(t *testing.T) {
	tr, err := New(stubGenerator{out: "El demandante firmó el contrato."})
	require.NoError(t, err)
	res, err := tr.Translate(context.Background(), "The plaintiff signed the contract.", Spanish, true)
	require.NoError(t, err)
	assert.True(t, res.Enhanced)
	assert.Equal(t, "El demandante firmó el contrato.", res.Text)

	tr, err = New(stubGenerator{err: errors.New("timeout")})
	require.NoError(t, err)
	res, err = tr.Translate(context.Background(), "The plaintiff signed the contract.", Spanish, true)
	require.NoError(t, err)
	assert.False(t, res.Enhanced)
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, "El demandante firmado el contrato.", res.Text)
}
