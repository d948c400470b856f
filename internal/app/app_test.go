package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nichelabs/discovery-engine/internal/config"
	"github.com/nichelabs/discovery-engine/internal/discovery"
	providermem "github.com/nichelabs/discovery-engine/internal/provider/memory"
	publishermem "github.com/nichelabs/discovery-engine/internal/publisher/memory"
	storagemem "github.com/nichelabs/discovery-engine/internal/storage/memory"
)

func memoryConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080},
		Discovery: config.DiscoveryConfig{
			GridDelaySeconds:  0,
			FanOut:            2,
			SearchRetries:     1,
			ImportTopic:       "business-imports",
			UseMemoryProvider: true,
		},
	}
}

func TestNewMemoryModeWiresEverything(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	require.NotNil(t, a.Sessions)
	require.NotNil(t, a.Records)
	require.NotNil(t, a.Progress)
	require.NotNil(t, a.Orchestrator)
	require.NotNil(t, a.Hub)
	require.Len(t, a.Providers, 1)
	require.IsType(t, &providermem.Provider{}, a.Providers[0])
	require.IsType(t, &publishermem.Publisher{}, a.Publisher)
}

func TestMemoryModeSessionRunsToCompletion(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	prov, ok := a.Providers[0].(*providermem.Provider)
	require.True(t, ok)
	// One seeded place at the first metro tile center (New York).
	prov.Seed(discovery.PlaceDetails{
		ExternalID: "p1",
		Name:       "Midtown Dental",
		Categories: []string{"dentist"},
		City:       "New York",
		Region:     "NY",
		PostalCode: "10007",
		Phone:      "212-555-0100",
		Lat:        40.7128,
		Lng:        -74.0060,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sess, err := a.Orchestrator.StartSession(ctx, discovery.Config{
		TargetCount: 1,
		Strategy:    discovery.StrategyMetroFirst,
		Niche:       discovery.Niche{SearchTerms: []string{"dentist"}},
	})
	require.NoError(t, err)
	require.NoError(t, a.Orchestrator.Run(ctx, sess.ID))

	final, err := a.Sessions.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, discovery.SessionStatusCompleted, final.Status)
	require.Equal(t, 1, final.Found)
	require.Equal(t, 1, final.Imported)

	records, ok := a.Records.(*storagemem.RecordStore)
	require.True(t, ok)
	require.Equal(t, 1, records.Len())
}
