package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"

	"github.com/notargets/gosubdiv/far"
	"github.com/notargets/gosubdiv/topology"
)

// Parameters obtained from the YAML input file
type StencilParameters struct {
	Title                       string  `json:"Title"`
	Scheme                      string  `json:"Scheme"`                // CatmullClark or Bilinear
	BoundaryInterpolation       string  `json:"BoundaryInterpolation"` // EdgeOnly or EdgeAndCorner
	RefinementLevel             int     `json:"RefinementLevel"`
	InterpolationMode           string  `json:"InterpolationMode"` // Vertex, Varying or FaceVarying
	LevelScope                  string  `json:"LevelScope"`        // Last or All
	FactorizeIntermediateLevels bool    `json:"FactorizeIntermediateLevels"`
	GenerateOffsets             bool    `json:"GenerateOffsets"`
	FVarChannel                 int     `json:"FVarChannel"`
	WeightTolerance             float64 `json:"WeightTolerance"`
	Workers                     int     `json:"Workers"`
}

// NewStencilParameters returns the values used for keys absent from the input file
func NewStencilParameters() *StencilParameters {
	def := far.DefaultOptions()
	return &StencilParameters{
		Scheme:                      topology.CatmullClark.String(),
		BoundaryInterpolation:       topology.EdgeOnly.String(),
		RefinementLevel:             2,
		InterpolationMode:           def.InterpolationMode.String(),
		LevelScope:                  def.LevelScope.String(),
		FactorizeIntermediateLevels: def.FactorizeIntermediateLevels,
		GenerateOffsets:             def.GenerateOffsets,
		WeightTolerance:             def.WeightTolerance,
	}
}

func (ip *StencilParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

// RefinerOptions converts the topology related keys
func (ip *StencilParameters) RefinerOptions() (opts topology.Options, err error) {
	if opts.Scheme, err = topology.ParseScheme(ip.Scheme); err != nil {
		return
	}
	opts.BoundaryInterpolation, err = topology.ParseBoundaryInterpolation(ip.BoundaryInterpolation)
	return
}

// StencilOptions converts the stencil table keys
func (ip *StencilParameters) StencilOptions() (opts far.Options, err error) {
	if ip.RefinementLevel < 0 {
		err = fmt.Errorf("%w: RefinementLevel %d", far.ErrInvalidOptions, ip.RefinementLevel)
		return
	}
	if opts.InterpolationMode, err = far.ParseInterpolationMode(ip.InterpolationMode); err != nil {
		return
	}
	if opts.LevelScope, err = far.ParseLevelScope(ip.LevelScope); err != nil {
		return
	}
	opts.FactorizeIntermediateLevels = ip.FactorizeIntermediateLevels
	opts.GenerateOffsets = ip.GenerateOffsets
	opts.FVarChannel = ip.FVarChannel
	opts.WeightTolerance = ip.WeightTolerance
	opts.Workers = ip.Workers
	err = opts.Validate()
	return
}

func (ip *StencilParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t= Scheme\n", ip.Scheme)
	fmt.Printf("[%s]\t\t= Boundary Interpolation\n", ip.BoundaryInterpolation)
	fmt.Printf("[%d]\t\t\t= Refinement Level\n", ip.RefinementLevel)
	fmt.Printf("[%s]\t\t= Interpolation Mode\n", ip.InterpolationMode)
	fmt.Printf("[%s]\t\t= Level Scope\n", ip.LevelScope)
	fmt.Printf("[%v]\t\t\t= Factorize Intermediate Levels\n", ip.FactorizeIntermediateLevels)
	fmt.Printf("[%v]\t\t\t= Generate Offsets\n", ip.GenerateOffsets)
	if ip.InterpolationMode == far.FaceVarying.String() {
		fmt.Printf("[%d]\t\t\t= FVar Channel\n", ip.FVarChannel)
	}
	fmt.Printf("%8.2e\t\t= Weight Tolerance\n", ip.WeightTolerance)
	fmt.Printf("[%d]\t\t\t= Workers\n", ip.Workers)
}
