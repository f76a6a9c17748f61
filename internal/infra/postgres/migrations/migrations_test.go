package migrations

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsRegistered(t *testing.T) {
	sorted := Migrations.Sorted()
	require.Len(t, sorted, 3)
	require.Equal(t, "2024112201", sorted[0].Name)
	require.Equal(t, "2024112203", sorted[2].Name)
	require.Contains(t, createContentSQL, "CREATE TABLE IF NOT EXISTS verses")
}
