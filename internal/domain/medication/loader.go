package medication

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Loader ingests catalog rows from processed JSON or CSV exports of the EDA
// drug registry. Bad rows are logged and skipped; loading continues.
type Loader struct {
	catalog *Catalog
	logger  zerolog.Logger
}

func NewLoader(catalog *Catalog, logger zerolog.Logger) *Loader {
	return &Loader{catalog: catalog, logger: logger}
}

type catalogFile struct {
	Medications []json.RawMessage `json:"medications"`
}

type catalogRow struct {
	ID                *int     `json:"id"`
	CommercialName    string   `json:"commercial_name"`
	GenericName       string   `json:"generic_name"`
	ArabicName        string   `json:"arabic_name"`
	ActiveIngredients []string `json:"active_ingredients"`
	Strength          string   `json:"strength"`
	StrengthValue     float64  `json:"strength_value"`
	StrengthUnit      string   `json:"strength_unit"`
	DosageForm        string   `json:"dosage_form"`
	PackageSize       string   `json:"package_size"`
	Manufacturer      string   `json:"manufacturer"`
	ATCCode           string   `json:"atc_code"`
	EDARegistration   string   `json:"eda_registration"`
	IsOTC             bool     `json:"is_otc"`
	IsControlled      bool     `json:"is_controlled"`
}

// LoadJSON reads a processed catalog document. Returns the number of
// medications loaded.
func (l *Loader) LoadJSON(r io.Reader) (int, error) {
	var file catalogFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return 0, fmt.Errorf("decode catalog: %w", err)
	}

	count := 0
	for _, raw := range file.Medications {
		var row catalogRow
		if err := json.Unmarshal(raw, &row); err != nil {
			l.logger.Warn().Err(err).Msg("skipping unparsable medication row")
			continue
		}
		m, err := rowToMedication(row)
		if err != nil {
			l.logger.Warn().Err(err).Str("commercial_name", row.CommercialName).
				Msg("skipping invalid medication row")
			continue
		}
		l.catalog.Put(m)
		count++
	}
	l.catalog.MarkLoaded()
	l.logger.Info().Int("count", count).Msg("catalog loaded from JSON")
	return count, nil
}

func rowToMedication(row catalogRow) (*Medication, error) {
	if row.ID == nil {
		return nil, fmt.Errorf("missing id")
	}
	if strings.TrimSpace(row.CommercialName) == "" {
		return nil, fmt.Errorf("missing commercial_name")
	}

	m := FromCommercialName(*row.ID, row.CommercialName)
	if row.GenericName != "" {
		m.GenericName = strings.ToLower(row.GenericName)
	}
	m.ArabicName = row.ArabicName
	if len(row.ActiveIngredients) > 0 {
		m.ActiveIngredients = row.ActiveIngredients
	}
	if row.Strength != "" {
		m.Strength = row.Strength
	}
	if row.StrengthValue != 0 {
		if row.StrengthValue < 0 {
			return nil, fmt.Errorf("negative strength_value %v", row.StrengthValue)
		}
		m.StrengthValue = row.StrengthValue
	}
	if row.StrengthUnit != "" {
		m.StrengthUnit = strings.ToLower(row.StrengthUnit)
	}
	if row.DosageForm != "" {
		// Catalog rows are lenient: unknown forms degrade to "other"
		// instead of failing the load.
		if f, err := ParseDosageForm(row.DosageForm); err == nil {
			m.DosageForm = f
		} else {
			m.DosageForm = FormOther
		}
	}
	if row.PackageSize != "" {
		m.PackageSize = row.PackageSize
	}
	m.Manufacturer = row.Manufacturer
	m.ATCCode = row.ATCCode
	m.EDARegistration = row.EDARegistration
	m.IsOTC = row.IsOTC
	m.IsControlled = row.IsControlled
	return m, nil
}

// LoadCSV reads a CSV export with at least Id and CommercialName columns.
func (l *Loader) LoadCSV(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	idCol, nameCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "id":
			idCol = i
		case "commercialname", "commercial_name":
			nameCol = i
		}
	}
	if idCol < 0 || nameCol < 0 {
		return 0, fmt.Errorf("csv header must contain Id and CommercialName columns")
	}

	count := 0
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			l.logger.Warn().Err(err).Int("line", line).Msg("skipping malformed csv row")
			continue
		}
		if idCol >= len(record) || nameCol >= len(record) {
			l.logger.Warn().Int("line", line).Msg("skipping short csv row")
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(record[idCol]))
		if err != nil {
			l.logger.Warn().Err(err).Int("line", line).Msg("skipping csv row with bad id")
			continue
		}
		name := strings.TrimSpace(record[nameCol])
		if name == "" {
			l.logger.Warn().Int("line", line).Msg("skipping csv row with empty name")
			continue
		}
		l.catalog.Put(FromCommercialName(id, name))
		count++
	}
	l.catalog.MarkLoaded()
	l.logger.Info().Int("count", count).Msg("catalog loaded from CSV")
	return count, nil
}

// LoadFile dispatches on the file extension: .json loads the processed
// format, .csv the registry export.
func (l *Loader) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return l.LoadJSON(f)
	case ".csv":
		return l.LoadCSV(f)
	default:
		return 0, fmt.Errorf("unsupported catalog format %q (want .json or .csv)", filepath.Ext(path))
	}
}
