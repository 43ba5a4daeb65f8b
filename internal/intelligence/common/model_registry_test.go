package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelRegistry_Lifecycle(t *testing.T) {
	r := NewModelRegistry(nil)

	require.NoError(t, r.Register(ModelMetadata{Name: "en-pol", Kind: KindDocumentClassifier, Location: "m/en-pol.yaml"}))
	require.NoError(t, r.Register(ModelMetadata{Name: "en-ote", Kind: KindSequenceLabeler}))
	assert.ErrorIs(t, r.Register(ModelMetadata{Name: "en-ote"}), ErrModelAlreadyExists)
	assert.Error(t, r.Register(ModelMetadata{}))

	got, err := r.Get("en-pol")
	require.NoError(t, err)
	assert.Equal(t, KindDocumentClassifier, got.Kind)
	assert.False(t, got.LoadedAt.IsZero())

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "en-ote", list[0].Name)

	r.Replace(ModelMetadata{Name: "en-ote", Kind: KindSequenceLabeler, Location: "s3://m/en-ote.yaml"})
	got, err = r.Get("en-ote")
	require.NoError(t, err)
	assert.Equal(t, "s3://m/en-ote.yaml", got.Location)

	require.NoError(t, r.Unregister("en-ote"))
	assert.ErrorIs(t, r.Unregister("en-ote"), ErrModelNotFound)
	_, err = r.Get("en-ote")
	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.Equal(t, 1, r.Len())
}
