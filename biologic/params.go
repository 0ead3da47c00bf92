package biologic

import (
	"time"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

// ParamKind tags the value union carried by a Param.
type ParamKind int32

const (
	ParamBool ParamKind = iota
	ParamInt
	ParamSingle
)

// Param is one flat vendor parameter descriptor, in the order the
// technique's ECC file expects it. The Parameter Builder below assembles
// these in the exact field order each technique requires; LoadTechnique
// sends them as-is.
type Param struct {
	Label  string
	Kind   ParamKind
	Bool   bool
	Int    int32
	Single float32
	Index  int32
}

func paramBool(label string, v bool) Param   { return Param{Label: label, Kind: ParamBool, Bool: v} }
func paramInt(label string, v int32) Param   { return Param{Label: label, Kind: ParamInt, Int: v} }
func paramSingle(label string, v float32) Param {
	return Param{Label: label, Kind: ParamSingle, Single: v}
}

func seconds(d time.Duration) float32 { return float32(d.Seconds()) }

// ERange is the potential measurement range. Auto lets the device pick.
type ERange int32

const (
	ERange2_5V ERange = iota
	ERange5V
	ERange10V
	ERangeAuto
)

// IRange is the current measurement range. GEIS/SGEIS reject IRangeAuto:
// a galvanostatic technique must pin a concrete current range up front.
type IRange int32

const (
	IRangeAuto IRange = iota
	IRange1A
	IRange100mA
	IRange10mA
	IRange1mA
	IRange100uA
)

// OCVParams are the inputs to the Open Circuit Voltage technique.
type OCVParams struct {
	RestTime      time.Duration
	RecordEveryDE float32 // mV
	RecordEveryDT time.Duration
	ERange        ERange
}

// BuildOCV assembles OCV's 4 parameters (§6.2).
func BuildOCV(p OCVParams) []Param {
	return []Param{
		paramSingle("Rest_time_T", seconds(p.RestTime)),
		paramSingle("Record_every_dE", p.RecordEveryDE),
		paramSingle("Record_every_dT", seconds(p.RecordEveryDT)),
		paramInt("E_Range", int32(p.ERange)),
	}
}

// PEISParams are the inputs to Potentiostatic EIS.
type PEISParams struct {
	VsInitial          bool
	InitialVoltageStep float32
	DurationStep       time.Duration
	RecordEveryDT      time.Duration
	RecordEveryDI      float32
	FinalFrequency     float32
	InitialFrequency   float32
	Sweep              bool
	AmplitudeVoltage   float32
	FrequencyNumber    int32
	AverageNTimes      int32
	Correction         bool
	WaitForSteady      float32
}

// BuildPEIS assembles PEIS's 13 parameters (§6.2).
func BuildPEIS(p PEISParams) []Param {
	return []Param{
		paramBool("vs_initial", p.VsInitial),
		paramSingle("Initial_Voltage_step", p.InitialVoltageStep),
		paramSingle("Duration_step", seconds(p.DurationStep)),
		paramSingle("Record_every_dT", seconds(p.RecordEveryDT)),
		paramSingle("Record_every_dI", p.RecordEveryDI),
		paramSingle("Final_frequency", p.FinalFrequency),
		paramSingle("Initial_frequency", p.InitialFrequency),
		paramBool("sweep", p.Sweep),
		paramSingle("Amplitude_Voltage", p.AmplitudeVoltage),
		paramInt("Frequency_number", p.FrequencyNumber),
		paramInt("Average_N_times", p.AverageNTimes),
		paramBool("Correction", p.Correction),
		paramSingle("Wait_for_steady", p.WaitForSteady),
	}
}

// SPEISParams are the inputs to Staircase Potentio EIS: PEIS's schema
// preceded by a final-step voltage pair and augmented with a step index.
type SPEISParams struct {
	PEISParams
	VsFinal          bool
	FinalVoltageStep float32
	StepNumber       int32 // 0..98
}

// BuildSPEIS assembles SPEIS's 16 parameters (§6.2): vs_final and
// Final_Voltage_step precede the PEIS schema, and Step_number is inserted
// immediately after the step fields (Initial_Voltage_step, Duration_step).
func BuildSPEIS(p SPEISParams) ([]Param, error) {
	if p.StepNumber < 0 || p.StepNumber > 98 {
		return nil, interfaces.New("biologic.build-speis", interfaces.CodeInvalidParameter, "Step_number must be within 0..98")
	}
	return []Param{
		paramBool("vs_final", p.VsFinal),
		paramSingle("Final_Voltage_step", p.FinalVoltageStep),
		paramBool("vs_initial", p.VsInitial),
		paramSingle("Initial_Voltage_step", p.InitialVoltageStep),
		paramSingle("Duration_step", seconds(p.DurationStep)),
		paramInt("Step_number", p.StepNumber),
		paramSingle("Record_every_dT", seconds(p.RecordEveryDT)),
		paramSingle("Record_every_dI", p.RecordEveryDI),
		paramSingle("Final_frequency", p.FinalFrequency),
		paramSingle("Initial_frequency", p.InitialFrequency),
		paramBool("sweep", p.Sweep),
		paramSingle("Amplitude_Voltage", p.AmplitudeVoltage),
		paramInt("Frequency_number", p.FrequencyNumber),
		paramInt("Average_N_times", p.AverageNTimes),
		paramBool("Correction", p.Correction),
		paramSingle("Wait_for_steady", p.WaitForSteady),
	}, nil
}

// GEISParams are the inputs to Galvanostatic EIS: the same structure as
// PEIS but current-valued, plus a trailing current range.
type GEISParams struct {
	VsInitial          bool
	InitialCurrentStep float32
	DurationStep       time.Duration
	RecordEveryDT      time.Duration
	RecordEveryDE      float32
	FinalFrequency     float32
	InitialFrequency   float32
	Sweep              bool
	AmplitudeCurrent   float32
	FrequencyNumber    int32
	AverageNTimes      int32
	Correction         bool
	WaitForSteady      float32
	IRange             IRange
}

// BuildGEIS assembles GEIS's 14 parameters (§6.2): PEIS's schema with
// Initial_Voltage_step/Record_every_dI/Amplitude_Voltage renamed to their
// current-valued counterparts, plus a trailing I_Range.
func BuildGEIS(p GEISParams) ([]Param, error) {
	if p.IRange == IRangeAuto {
		return nil, interfaces.New("biologic.build-geis", interfaces.CodeInvalidParameter, "I_Range must not be Auto")
	}
	return []Param{
		paramBool("vs_initial", p.VsInitial),
		paramSingle("Initial_Current_step", p.InitialCurrentStep),
		paramSingle("Duration_step", seconds(p.DurationStep)),
		paramSingle("Record_every_dT", seconds(p.RecordEveryDT)),
		paramSingle("Record_every_dE", p.RecordEveryDE),
		paramSingle("Final_frequency", p.FinalFrequency),
		paramSingle("Initial_frequency", p.InitialFrequency),
		paramBool("sweep", p.Sweep),
		paramSingle("Amplitude_Current", p.AmplitudeCurrent),
		paramInt("Frequency_number", p.FrequencyNumber),
		paramInt("Average_N_times", p.AverageNTimes),
		paramBool("Correction", p.Correction),
		paramSingle("Wait_for_steady", p.WaitForSteady),
		paramInt("I_Range", int32(p.IRange)),
	}, nil
}

// SGEISParams are the inputs to Staircase Galvano EIS: GEIS's schema
// preceded by a final-step current pair and augmented with a step index.
type SGEISParams struct {
	GEISParams
	VsFinal          bool
	FinalCurrentStep float32
	StepNumber       int32 // 0..98
}

// BuildSGEIS assembles SGEIS's 17 parameters (§6.2), mirroring SPEIS's
// augmentation of PEIS.
func BuildSGEIS(p SGEISParams) ([]Param, error) {
	if p.IRange == IRangeAuto {
		return nil, interfaces.New("biologic.build-sgeis", interfaces.CodeInvalidParameter, "I_Range must not be Auto")
	}
	if p.StepNumber < 0 || p.StepNumber > 98 {
		return nil, interfaces.New("biologic.build-sgeis", interfaces.CodeInvalidParameter, "Step_number must be within 0..98")
	}
	return []Param{
		paramBool("vs_final", p.VsFinal),
		paramSingle("Final_Current_step", p.FinalCurrentStep),
		paramBool("vs_initial", p.VsInitial),
		paramSingle("Initial_Current_step", p.InitialCurrentStep),
		paramSingle("Duration_step", seconds(p.DurationStep)),
		paramInt("Step_number", p.StepNumber),
		paramSingle("Record_every_dT", seconds(p.RecordEveryDT)),
		paramSingle("Record_every_dE", p.RecordEveryDE),
		paramSingle("Final_frequency", p.FinalFrequency),
		paramSingle("Initial_frequency", p.InitialFrequency),
		paramBool("sweep", p.Sweep),
		paramSingle("Amplitude_Current", p.AmplitudeCurrent),
		paramInt("Frequency_number", p.FrequencyNumber),
		paramInt("Average_N_times", p.AverageNTimes),
		paramBool("Correction", p.Correction),
		paramSingle("Wait_for_steady", p.WaitForSteady),
		paramInt("I_Range", int32(p.IRange)),
	}, nil
}
