package event

import (
	"encoding/json"
	"testing"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedRecord(t *testing.T) *form.FormRecord {
	t.Helper()
	record, err := form.NewFormRecord("ABCD1234", "Maria Lopez", "maria@example.com")
	require.NoError(t, err)
	return record
}

func TestEventSerializer_RoundTrip(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterFormEvents(serializer)

	original := form.NewFormCompletedEvent(completedRecord(t))
	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, form.EventTypeFormCompleted, env.Type)
	assert.Equal(t, "ABCD1234", env.AggregateKey)
	assert.Equal(t, form.AggregateTypeFormRecord, env.AggregateType)
	assert.Equal(t, 1, env.SchemaVersion)
	assert.Equal(t, original.EventID(), env.ID)

	decoded, err := serializer.Deserialize(data)
	require.NoError(t, err)
	completed, ok := decoded.(*form.FormCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, original.Token, completed.Token)
	assert.Equal(t, original.ClientEmail, completed.ClientEmail)
	assert.Equal(t, original.EventID(), completed.EventID())
}

func TestEventSerializer_Errors(t *testing.T) {
	serializer := NewEventSerializer()

	t.Run("unknown type", func(t *testing.T) {
		data, err := serializer.Serialize(newTestEvent("Unregistered"))
		require.NoError(t, err)
		_, err = serializer.Deserialize(data)
		assert.ErrorContains(t, err, "unknown event type")
	})

	t.Run("malformed envelope", func(t *testing.T) {
		_, err := serializer.Deserialize([]byte("{"))
		assert.Error(t, err)
	})
}

func TestRegisterFormEvents(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterFormEvents(serializer)

	for _, eventType := range []string{
		form.EventTypeFormRecordCreated,
		form.EventTypeFormStepSubmitted,
		form.EventTypeFormDraftSaved,
		form.EventTypeFormCompleted,
		form.EventTypeFormPaymentStatusChanged,
		form.EventTypeFormActivationChanged,
		form.EventTypeFormCommentAdded,
		form.EventTypeFormRecordDeleted,
	} {
		assert.True(t, serializer.IsRegistered(eventType), eventType)
	}
}
