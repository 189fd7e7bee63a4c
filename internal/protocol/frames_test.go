package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/solace/internal/domain"
)

func TestDecodeRequiresType(t *testing.T) {
	_, err := Decode([]byte(`{"text":"hi"}`))
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeAudioFrame(t *testing.T) {
	f, err := Decode([]byte(`{"type":"audio","audioData":"AAEC","mimeType":"audio/pcm;rate=16000"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeAudio, f.Type)
	assert.Equal(t, "AAEC", f.AudioData)
	assert.Equal(t, "audio/pcm;rate=16000", f.MimeType)
}

func TestEncodeStampsTimestamp(t *testing.T) {
	data, err := Encode(Connected("sess_1", domain.TherapeuticContext{PrimaryConcern: "Anxiety management"}))
	require.NoError(t, err)

	f, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypeConnected, f.Type)
	assert.Equal(t, "sess_1", f.SessionID)
	assert.NotZero(t, f.Ts)
	require.NotNil(t, f.Context)
	assert.Equal(t, "Anxiety management", f.Context.PrimaryConcern)
}

func TestEndedCarriesSavedFlag(t *testing.T) {
	data, err := Encode(Ended("sess_1", "", false))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"saved":false`)
}
