package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

func TestResetTokenRepositoryWithoutClient(t *testing.T) {
	repo := NewResetTokenRepository(nil)
	err := repo.Save(context.Background(), "tok", models.PasswordResetToken{UserID: "u1"}, time.Minute)
	require.ErrorIs(t, err, ErrResetTokenUnavailable)

	_, err = repo.Consume(context.Background(), "tok")
	require.ErrorIs(t, err, ErrResetTokenUnavailable)
}

func TestEventRepositoryWithoutClient(t *testing.T) {
	repo := NewEventRepository(nil, "", nil)
	assert.Equal(t, "clearance.events", repo.channel)
	assert.NoError(t, repo.Publish(context.Background(), models.DomainEvent{Type: models.EventReceiptSubmitted}))

	_, err := repo.Subscribe(context.Background())
	require.ErrorIs(t, err, ErrEventBusUnavailable)
}
