//go:build !integration

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"storefront/internal/api/domain/order"
	"storefront/internal/api/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completedF1 = `{"formId":"f1","status":"completed","amount":"100.00","currency":"ILS"}`

// mockPublisher captures published envelopes for assertions.
type mockPublisher struct {
	envelopes  []messaging.Envelope
	publishErr error
}

func (m *mockPublisher) Publish(_ context.Context, env messaging.Envelope) error {
	m.envelopes = append(m.envelopes, env)
	return m.publishErr
}

func (m *mockPublisher) Close() error {
	return nil
}

// mockClient is a mock implementation of apiclient.Client for testing.
type mockClient struct {
	forwarded [][]byte
	err       error
}

func (m *mockClient) ForwardWebhook(_ context.Context, raw []byte) error {
	m.forwarded = append(m.forwarded, raw)
	return m.err
}

func (m *mockClient) Close() error {
	return nil
}

func TestAsyncProcessor_Process(t *testing.T) {
	t.Run("publishes raw payload keyed by formId", func(t *testing.T) {
		// given
		pub := &mockPublisher{}
		processor := NewAsyncProcessor(pub)

		// when
		err := processor.Process(context.Background(), []byte(completedF1))

		// then
		require.NoError(t, err)
		require.Len(t, pub.envelopes, 1)
		env := pub.envelopes[0]
		assert.Equal(t, "f1", env.Key)
		assert.Equal(t, messaging.TypeProviderWebhook, env.Type)
		assert.NotEmpty(t, env.EventID)
		assert.JSONEq(t, completedF1, string(env.Payload))
	})

	t.Run("payload survives the envelope round trip", func(t *testing.T) {
		// given
		pub := &mockPublisher{}
		processor := NewAsyncProcessor(pub)
		require.NoError(t, processor.Process(context.Background(), []byte(completedF1)))

		// when
		data, err := json.Marshal(pub.envelopes[0])
		require.NoError(t, err)
		var decoded messaging.Envelope
		require.NoError(t, json.Unmarshal(data, &decoded))

		// then
		fragment, err := order.Normalize(decoded.Payload)
		require.NoError(t, err)
		original, err := order.Normalize([]byte(completedF1))
		require.NoError(t, err)
		assert.Equal(t, original.Digest, fragment.Digest)
	})

	t.Run("invalid payload is rejected before publishing", func(t *testing.T) {
		// given
		pub := &mockPublisher{}
		processor := NewAsyncProcessor(pub)

		// when
		err := processor.Process(context.Background(), []byte(`{"status":"completed","amount":"1","currency":"ILS"}`))

		// then
		var verr *order.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "formId", verr.Field)
		assert.Empty(t, pub.envelopes)
	})

	t.Run("propagates publish errors", func(t *testing.T) {
		// given
		publishErr := errors.New("broker down")
		processor := NewAsyncProcessor(&mockPublisher{publishErr: publishErr})

		// when
		err := processor.Process(context.Background(), []byte(completedF1))

		// then
		assert.ErrorIs(t, err, publishErr)
	})
}

func TestForwardProcessor_Process(t *testing.T) {
	t.Run("forwards raw payload unchanged", func(t *testing.T) {
		// given
		client := &mockClient{}
		processor := NewForwardProcessor(client)

		// when
		err := processor.Process(context.Background(), []byte(completedF1))

		// then
		require.NoError(t, err)
		require.Len(t, client.forwarded, 1)
		assert.Equal(t, []byte(completedF1), client.forwarded[0])
	})

	t.Run("malformed payload is not forwarded", func(t *testing.T) {
		// given
		client := &mockClient{}
		processor := NewForwardProcessor(client)

		// when
		err := processor.Process(context.Background(), []byte(`not json`))

		// then
		assert.ErrorIs(t, err, order.ErrValidation)
		assert.Empty(t, client.forwarded)
	})

	t.Run("propagates client errors", func(t *testing.T) {
		// given
		clientErr := errors.New("connection failed")
		processor := NewForwardProcessor(&mockClient{err: clientErr})

		// when
		err := processor.Process(context.Background(), []byte(completedF1))

		// then
		assert.ErrorIs(t, err, clientErr)
	})
}
