package flatfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpool/internal/domain/entities"
)

func TestExportTrips(t *testing.T) {
	g := sampleGraph(t)
	var buf bytes.Buffer

	require.NoError(t, ExportTrips(&buf, g.Trips))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\uFEFF"), "export starts with a byte order mark")
	lines := strings.Split(strings.TrimPrefix(out, "\uFEFF"), "\r\n")
	require.Len(t, lines, 3, "header, one trip, trailing empty")

	assert.Equal(t, "Départ;Arrivée;Durée (minutes);Statut;Prix;Conducteur;Places totales;Places disponibles;Passagers acceptés;Demandes en attente", lines[0])
	assert.Equal(t, `"Tunis; Bab Saadoun";Sousse;90;En attente d'approbation;12.50;Sami Gharbi;3;2;Lina Haddad;Omar Jaziri`, lines[1])
	assert.Empty(t, lines[2])
}

func TestExportTrips_FinishedTripAndMissingDriver(t *testing.T) {
	p := entities.NewPassenger(entities.Profile{NationalID: "22222222", Name: "Lina", Surname: "Haddad"})
	trip, _, err := entities.RestoreTrip(entities.TripState{
		Departure: "Sfax", Arrival: "Gabès", Duration: 2 * time.Hour, Price: 20, MaxSeats: 2,
		Accepted: []*entities.Passenger{p}, Finished: true,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportTrips(&buf, []*entities.Trip{trip}))
	assert.Contains(t, buf.String(), "Sfax;Gabès;120;Terminé;20.00;;2;1;Lina Haddad;\r\n")
}

func TestExportTripsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, ExportTripsFile(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
}
