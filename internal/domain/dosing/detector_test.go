package dosing

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/healthflow/rxguard/internal/domain/clinical"
	"github.com/healthflow/rxguard/internal/domain/medication"
)

func newTestDetector() *Detector {
	return NewDetector(zerolog.Nop())
}

func ip(v int) *int         { return &v }
func fp(v float64) *float64 { return &v }

func med(id int, commercial, generic string) *medication.Medication {
	return &medication.Medication{ID: id, CommercialName: commercial, GenericName: generic}
}

func TestPatientGFR(t *testing.T) {
	d := newTestDetector()

	t.Run("explicit value wins", func(t *testing.T) {
		p := &clinical.PatientContext{GFR: fp(45.5), Age: ip(40), WeightKg: fp(70),
			SerumCreatinine: fp(1.0), Sex: clinical.SexMale}
		gfr, ok := d.PatientGFR(p)
		if !ok || gfr != 45.5 {
			t.Errorf("PatientGFR = (%v, %v), want (45.5, true)", gfr, ok)
		}
	})

	t.Run("derived from cockcroft-gault", func(t *testing.T) {
		p := &clinical.PatientContext{Age: ip(70), WeightKg: fp(60),
			SerumCreatinine: fp(2.0), Sex: clinical.SexFemale}
		gfr, ok := d.PatientGFR(p)
		if !ok || gfr != 24.8 {
			t.Errorf("PatientGFR = (%v, %v), want (24.8, true)", gfr, ok)
		}
	})

	t.Run("missing inputs", func(t *testing.T) {
		p := &clinical.PatientContext{Age: ip(70), SerumCreatinine: fp(2.0), Sex: clinical.SexFemale}
		if _, ok := d.PatientGFR(p); ok {
			t.Error("GFR should be unknown without weight")
		}
	})

	t.Run("junk creatinine", func(t *testing.T) {
		p := &clinical.PatientContext{Age: ip(70), WeightKg: fp(60),
			SerumCreatinine: fp(0), Sex: clinical.SexFemale}
		if _, ok := d.PatientGFR(p); ok {
			t.Error("GFR should be unknown with non-positive creatinine")
		}
	})

	t.Run("nil context", func(t *testing.T) {
		if _, ok := d.PatientGFR(nil); ok {
			t.Error("GFR should be unknown for nil context")
		}
	})
}

func TestClassifyStatus(t *testing.T) {
	d := newTestDetector()

	t.Run("declared stage wins over gfr", func(t *testing.T) {
		p := &clinical.PatientContext{RenalImpairment: clinical.RenalSevere, GFR: fp(100)}
		if got := d.ClassifyStatus(p); got != clinical.RenalSevere {
			t.Errorf("status = %q, want severe", got)
		}
	})

	t.Run("derived from gfr", func(t *testing.T) {
		p := &clinical.PatientContext{GFR: fp(45)}
		if got := d.ClassifyStatus(p); got != clinical.RenalModerate {
			t.Errorf("status = %q, want moderate", got)
		}
	})

	t.Run("defaults to normal", func(t *testing.T) {
		if got := d.ClassifyStatus(&clinical.PatientContext{}); got != clinical.RenalNormal {
			t.Errorf("status = %q, want normal", got)
		}
	})
}

func TestRenalAdjustment_Contraindicated(t *testing.T) {
	d := newTestDetector()
	metformin := med(4, "Glucophage 850 mg Tab", "metformin")
	p := &clinical.PatientContext{GFR: fp(20)}

	adj := d.RenalAdjustment(metformin, p)
	if adj == nil {
		t.Fatal("expected an adjustment for metformin at GFR 20")
	}
	if !adj.Contraindicated {
		t.Error("metformin in severe impairment must be contraindicated")
	}
	if adj.AdjustedDose != "Contraindicated" || adj.AdjustmentReason != "Lactic acidosis risk" {
		t.Errorf("dose/reason = %q/%q", adj.AdjustedDose, adj.AdjustmentReason)
	}
	if adj.ImpairmentType != "renal" || adj.ImpairmentLevel != "severe" {
		t.Errorf("impairment = %s/%s, want renal/severe", adj.ImpairmentType, adj.ImpairmentLevel)
	}
	if adj.GFRRange != "GFR: 20 mL/min" {
		t.Errorf("gfr_range = %q", adj.GFRRange)
	}
	if adj.StandardDose != "See package insert" {
		t.Errorf("standard dose = %q", adj.StandardDose)
	}
	want := []string{"Lactic acid if symptomatic", "Serum creatinine", "B12 annually"}
	if !reflect.DeepEqual(adj.MonitoringParameters, want) {
		t.Errorf("monitoring = %v, want %v", adj.MonitoringParameters, want)
	}
	if adj.Source == "" {
		t.Error("adjustment should carry a source tag")
	}
}

func TestRenalAdjustment_ModerateStage(t *testing.T) {
	d := newTestDetector()
	digoxin := med(8, "Lanoxin 0.25 mg Tab", "digoxin")
	p := &clinical.PatientContext{GFR: fp(45)}

	adj := d.RenalAdjustment(digoxin, p)
	if adj == nil {
		t.Fatal("expected an adjustment for digoxin at GFR 45")
	}
	if adj.Contraindicated {
		t.Error("digoxin at moderate impairment is adjusted, not contraindicated")
	}
	if adj.AdjustedDose != "0.0625-0.125mg daily" {
		t.Errorf("adjusted dose = %q", adj.AdjustedDose)
	}
	want := []string{"Digoxin level", "Potassium", "ECG"}
	if !reflect.DeepEqual(adj.MonitoringParameters, want) {
		t.Errorf("monitoring = %v, want %v", adj.MonitoringParameters, want)
	}
}

func TestRenalAdjustment_NoAdjustment(t *testing.T) {
	d := newTestDetector()

	t.Run("normal renal function", func(t *testing.T) {
		if adj := d.RenalAdjustment(med(4, "Glucophage 850 mg Tab", "metformin"),
			&clinical.PatientContext{}); adj != nil {
			t.Errorf("got %+v, want nil", adj)
		}
	})

	t.Run("drug without rules", func(t *testing.T) {
		if adj := d.RenalAdjustment(med(1, "Panadol 500 mg 20/Tab", "paracetamol"),
			&clinical.PatientContext{GFR: fp(20)}); adj != nil {
			t.Errorf("got %+v, want nil", adj)
		}
	})

	t.Run("stage without a table cell", func(t *testing.T) {
		// Metronidazole has severe and esrd rows only.
		if adj := d.RenalAdjustment(med(6, "Flagyl 500 mg Tab", "metronidazole"),
			&clinical.PatientContext{GFR: fp(45)}); adj != nil {
			t.Errorf("got %+v, want nil", adj)
		}
	})
}

func TestRenalAdjustment_NSAIDFallback(t *testing.T) {
	d := newTestDetector()
	brufen := med(3, "Brufen 400 mg 30/Tab", "ibuprofen")
	p := &clinical.PatientContext{GFR: fp(45)}

	adj := d.RenalAdjustment(brufen, p)
	if adj == nil {
		t.Fatal("expected the nsaid class rule to match brufen")
	}
	if adj.AdjustedDose != "Avoid if possible" {
		t.Errorf("adjusted dose = %q", adj.AdjustedDose)
	}
	if !adj.Contraindicated {
		t.Error(`"avoid" wording must mark the adjustment contraindicated`)
	}
	want := []string{"Serum creatinine", "Electrolytes"}
	if !reflect.DeepEqual(adj.MonitoringParameters, want) {
		t.Errorf("monitoring = %v, want default %v", adj.MonitoringParameters, want)
	}
}

func TestRenalAdjustment_OwnsMonitoringSlice(t *testing.T) {
	d := newTestDetector()
	digoxin := med(8, "Lanoxin 0.25 mg Tab", "digoxin")
	p := &clinical.PatientContext{GFR: fp(45)}

	first := d.RenalAdjustment(digoxin, p)
	first.MonitoringParameters[0] = "clobbered"

	second := d.RenalAdjustment(digoxin, p)
	if second.MonitoringParameters[0] != "Digoxin level" {
		t.Error("mutating a result leaked into the rule table")
	}
}

func TestCheckPrescription_ContraindicatedFirst(t *testing.T) {
	d := newTestDetector()
	meds := []*medication.Medication{
		med(8, "Lanoxin 0.25 mg Tab", "digoxin"),
		med(4, "Glucophage 850 mg Tab", "metformin"),
		med(1, "Panadol 500 mg 20/Tab", "paracetamol"),
	}
	p := &clinical.PatientContext{GFR: fp(20)}

	got := d.CheckPrescription(meds, p)
	if len(got) != 2 {
		t.Fatalf("got %d adjustments, want 2", len(got))
	}
	if got[0].MedicationName != "Glucophage 850 mg Tab" || !got[0].Contraindicated {
		t.Errorf("first adjustment = %+v, want contraindicated metformin", got[0])
	}
	if got[1].MedicationName != "Lanoxin 0.25 mg Tab" || got[1].Contraindicated {
		t.Errorf("second adjustment = %+v, want non-contraindicated digoxin", got[1])
	}
}

func TestCheckPrescription_NormalPatient(t *testing.T) {
	d := newTestDetector()
	meds := []*medication.Medication{med(4, "Glucophage 850 mg Tab", "metformin")}
	if got := d.CheckPrescription(meds, &clinical.PatientContext{}); len(got) != 0 {
		t.Errorf("got %d adjustments for a normal patient", len(got))
	}
}
