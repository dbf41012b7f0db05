/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/notargets/gosubdiv/InputParameters"
	"github.com/notargets/gosubdiv/far"
	"github.com/notargets/gosubdiv/mesh"
	"github.com/notargets/gosubdiv/osd"
	"github.com/notargets/gosubdiv/topology"
	"github.com/notargets/gosubdiv/utils"
)

type StencilModel struct {
	MeshFile   string
	ICFile     string
	OutputFile string
	Verify     bool
}

// StencilsCmd represents the stencils command
var StencilsCmd = &cobra.Command{
	Use:   "stencils",
	Short: "Refine a control mesh and build its stencil table",
	Long: `Reads a control mesh, refines it uniformly and builds the stencil table mapping
control vertices to refined points, optionally writing the table to a file`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		sm := &StencilModel{}
		if sm.MeshFile, err = cmd.Flags().GetString("meshFile"); err != nil {
			panic(err)
		}
		if sm.ICFile, err = cmd.Flags().GetString("inputParametersFile"); err != nil {
			panic(err)
		}
		sm.OutputFile, _ = cmd.Flags().GetString("outputFile")
		sm.Verify, _ = cmd.Flags().GetBool("verify")
		ip, err := processInput(sm)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		if _, err = RunStencils(sm, ip); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

const exampleFile = `
########################################
Title: "Test Case"
Scheme: CatmullClark # Can be "Bilinear"
BoundaryInterpolation: EdgeOnly # Can be "EdgeAndCorner"
RefinementLevel: 2
InterpolationMode: Vertex # Can be "Varying" or "FaceVarying"
LevelScope: Last # Can be "All"
FactorizeIntermediateLevels: true
GenerateOffsets: false
########################################
`

func processInput(sm *StencilModel) (ip *InputParameters.StencilParameters, err error) {
	if len(sm.MeshFile) == 0 {
		err = fmt.Errorf("must supply a mesh file (-F, --meshFile) in .su2 format")
		return
	}
	ip = InputParameters.NewStencilParameters()
	if len(sm.ICFile) == 0 {
		fmt.Printf("no input parameters file (-I, --inputParametersFile), using defaults\n")
		fmt.Printf("Example File:%s\n", exampleFile)
		return
	}
	var data []byte
	if data, err = os.ReadFile(sm.ICFile); err != nil {
		return
	}
	err = ip.Parse(data)
	return
}

func init() {
	rootCmd.AddCommand(StencilsCmd)
	StencilsCmd.Flags().StringP("meshFile", "F", "", "Control mesh file to read in SU2 (.su2) format")
	StencilsCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file for input parameters like:\n\t- Scheme\n\t- RefinementLevel")
	StencilsCmd.Flags().StringP("outputFile", "o", "", "write the stencil table to this file")
	StencilsCmd.Flags().Bool("verify", false, "compare stencil evaluation against level by level refinement")
}

func RunStencils(sm *StencilModel, ip *InputParameters.StencilParameters) (table *far.StencilTable, err error) {
	var (
		msh     *mesh.Mesh
		refiner *topology.Refiner
		ropts   topology.Options
		sopts   far.Options
	)
	ip.Print()
	if ropts, err = ip.RefinerOptions(); err != nil {
		return
	}
	if sopts, err = ip.StencilOptions(); err != nil {
		return
	}
	if msh, err = mesh.ReadMeshFile(sm.MeshFile); err != nil {
		return
	}
	msh.PrintStatistics()
	if refiner, err = topology.NewRefiner(msh.Descriptor(), ropts); err != nil {
		return
	}
	start := time.Now()
	if err = refiner.RefineUniform(ip.RefinementLevel); err != nil {
		return
	}
	fmt.Printf("Refined %d levels: %d vertices in %v\n",
		refiner.MaxLevel(), refiner.NumVerticesTotal(), time.Since(start))

	start = time.Now()
	if table, err = far.Create(refiner, sopts); err != nil {
		return
	}
	fmt.Printf("Built %s in %v\n", table, time.Since(start))
	fmt.Printf("Memory: %s\n", utils.GetMemUsage())

	if len(sm.OutputFile) != 0 {
		if err = writeTable(sm.OutputFile, table); err != nil {
			return
		}
	}
	if sopts.InterpolationMode == far.FaceVarying {
		if sm.Verify {
			fmt.Printf("Skipping verification: no face-varying data in %s\n", sm.MeshFile)
		}
		return
	}

	var (
		pos  = msh.Positions()
		desc = osd.NewBufferDescriptor(3)
		dst  = make([]float32, 3*table.NumStencils())
	)
	if err = osd.ParallelEvalStencils(pos, desc, dst, desc, table, sopts.Workers); err != nil {
		return
	}
	if utils.IsNan(dst) {
		err = fmt.Errorf("evaluated positions contain NaN")
		return
	}
	lo, hi := bounds(dst)
	fmt.Printf("Refined points bounding box: min %v max %v\n", lo, hi)

	if sm.Verify {
		var maxDiff float64
		// Cumulative tables end with the finest level
		if maxDiff, err = verifyAgainstPrimvar(refiner, sopts.InterpolationMode, pos,
			finestLevel(refiner, dst)); err != nil {
			return
		}
		fmt.Printf("Max deviation from level by level refinement: %8.3e\n", maxDiff)
	}
	return
}

func writeTable(filename string, table *far.StencilTable) (err error) {
	var f *os.File
	if f, err = os.Create(filename); err != nil {
		return
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	var n int64
	if n, err = table.WriteTo(f); err != nil {
		return
	}
	fmt.Printf("Wrote %d bytes to %s\n", n, filename)
	return
}

// verifyAgainstPrimvar refines pos one level at a time and returns the
// largest component difference from the stencil results in dst.
func verifyAgainstPrimvar(refiner *topology.Refiner, mode far.InterpolationMode,
	pos, dst []float32) (maxDiff float64, err error) {
	var (
		pr  = far.NewPrimvarRefiner(refiner)
		src = pos
	)
	for l := 1; l <= refiner.MaxLevel(); l++ {
		next := make([]float32, 3*refiner.NumVertices(l))
		if mode == far.Varying {
			err = pr.InterpolateVarying(l, 3, src, next)
		} else {
			err = pr.Interpolate(l, 3, src, next)
		}
		if err != nil {
			return
		}
		src = next
	}
	if len(src) != len(dst) {
		err = fmt.Errorf("refined %d values, stencils produced %d", len(src), len(dst))
		return
	}
	for i := range src {
		maxDiff = max(maxDiff, math.Abs(float64(src[i]-dst[i])))
	}
	return
}

// finestLevel returns the xyz values of the finest level's points, the
// tail of dst for either level scope.
func finestLevel(refiner *topology.Refiner, dst []float32) []float32 {
	n := 3 * refiner.NumVertices(refiner.MaxLevel())
	if n > len(dst) {
		return dst
	}
	return dst[len(dst)-n:]
}

func bounds(xyz []float32) (lo, hi [3]float32) {
	for d := 0; d < 3; d++ {
		lo[d], hi[d] = float32(math.Inf(1)), float32(math.Inf(-1))
	}
	for i := 0; i+3 <= len(xyz); i += 3 {
		for d := 0; d < 3; d++ {
			lo[d] = min(lo[d], xyz[i+d])
			hi[d] = max(hi[d], xyz[i+d])
		}
	}
	return
}
