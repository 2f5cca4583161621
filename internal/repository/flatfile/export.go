package flatfile

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"carpool/internal/domain/entities"
)

var exportColumns = []string{
	"Départ", "Arrivée", "Durée (minutes)", "Statut", "Prix", "Conducteur",
	"Places totales", "Places disponibles", "Passagers acceptés", "Demandes en attente",
}

var statusLabels = map[entities.TripStatus]string{
	entities.TripStatusPending:         "En attente",
	entities.TripStatusPendingApproval: "En attente d'approbation",
	entities.TripStatusInProgress:      "En cours",
	entities.TripStatusFinished:        "Terminé",
}

// ExportTrips writes a spreadsheet-friendly report of trips: UTF-8 with a
// byte order mark, CRLF line endings, and passengers listed by full name.
// The format is for people and is never read back.
func ExportTrips(w io.Writer, trips []*entities.Trip) error {
	enc := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	bw := bufio.NewWriter(enc)

	if _, err := bw.WriteString(JoinRecord(exportColumns, DefaultDelimiter) + "\r\n"); err != nil {
		return err
	}
	for _, t := range trips {
		if _, err := bw.WriteString(JoinRecord(exportRow(t), DefaultDelimiter) + "\r\n"); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

// ExportTripsFile writes the report to path atomically.
func ExportTripsFile(path string, trips []*entities.Trip) error {
	return writeAtomic(path, func(w *bufio.Writer) error {
		return ExportTrips(w, trips)
	})
}

func exportRow(t *entities.Trip) []string {
	snap := t.Snapshot()
	driver := ""
	if t.Driver != nil {
		driver = t.Driver.FullName()
	}
	return []string{
		snap.Departure,
		snap.Arrival,
		strconv.Itoa(snap.DurationMinutes),
		statusLabels[snap.Status],
		strconv.FormatFloat(snap.Price, 'f', 2, 64),
		driver,
		strconv.Itoa(snap.MaxSeats),
		strconv.Itoa(snap.AvailableSeats),
		passengerNames(t.Accepted()),
		passengerNames(t.Pending()),
	}
}

func passengerNames(ps []*entities.Passenger) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.FullName()
	}
	return strings.Join(names, ", ")
}
