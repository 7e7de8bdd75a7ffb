package cloudinary

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBuildPublicIDKeepsExtension(t *testing.T) {
	at := time.Unix(1700000000, 0)

	require.Equal(t, "Neha-Patel_Progress_Report_2025-01-15-1700000000.txt",
		buildPublicID("Neha Patel_Progress_Report_2025-01-15.txt", at))
	require.Equal(t, "report-1700000000.txt", buildPublicID("???", at))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
	require.False(t, Config{CloudName: "demo"}.Configured())
}
