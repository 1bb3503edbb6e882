package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, MaxReceiptBytes, cfg.Receipts.MaxFileSizeBytes)
	assert.Equal(t, time.Hour, cfg.Receipts.SignedURLTTL)
	assert.Equal(t, []string{"image/jpeg", "image/png", "image/webp"}, cfg.Receipts.AllowedMIMEs)
	assert.Equal(t, []string{"ict"}, cfg.Clearance.ExcludedUnits)
	assert.Equal(t, []string{"bursary", "accounts"}, cfg.Clearance.SuperReviewerUnits)
	assert.Equal(t, 7, cfg.Clearance.MaxAcademicYear)
	require.NoError(t, cfg.Validate())
}

func TestFromViperCapsReceiptSize(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("RECEIPTS_MAX_FILE_SIZE", 10*1024*1024)

	cfg := fromViper(v)

	assert.Equal(t, MaxReceiptBytes, cfg.Receipts.MaxFileSizeBytes)
}

func TestValidateProductionRequiresSecrets(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ENV", EnvProduction)

	cfg := fromViper(v)
	require.Error(t, cfg.Validate())

	cfg.JWT.Secret = "prod-secret"
	cfg.Receipts.SignedURLSecret = "prod-receipts"
	err := cfg.Validate()
	require.Error(t, err, "default slip secret is rejected")
	assert.Contains(t, err.Error(), "CLEARANCE_SLIP_SECRET")

	cfg.Clearance.SlipSecret = ""
	require.Error(t, cfg.Validate())

	cfg.Clearance.SlipSecret = "prod-slip"
	require.NoError(t, cfg.Validate())
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , ,b "))
}
