package simulation

import (
	"context"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"gra-pca/sentinel/pkg/declaration"
	"gra-pca/sentinel/pkg/rulepack"
)

func genDeclaration() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("27101990", "52010000", "61091000", "87032390", "10063000", "2711"),
		gen.Float64Range(0, 200000),
		gen.OneConstOf("CN", "NG", "GH", "AE", "JP", "TG"),
		gen.Bool(),
		gen.OneConstOf(declaration.SectorPetroleum, declaration.SectorTextiles,
			declaration.SectorVehicles, declaration.SectorOther, declaration.Sector("")),
	).Map(func(v []interface{}) *declaration.Declaration {
		return &declaration.Declaration{
			ID:            "P",
			HSCode:        v[0].(string),
			Value:         v[1].(float64),
			OriginCountry: v[2].(string),
			ECOWASOrigin:  v[3].(bool),
			Sector:        v[4].(declaration.Sector),
		}
	})
}

// Property: simulation metrics stay within their ranges and the breakdowns
// account for every declaration, whatever the labeler decides.
func TestMetricBoundsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("bounded metrics", prop.ForAll(
		func(decls []*declaration.Declaration, rate float64, seed uint64) bool {
			pack := rulepack.Default()
			before := pack.Clone()

			h := NewHarness(WithLabeler(NewRandomLabeler(rate, seed)))
			r, err := h.Evaluate(context.Background(), pack, decls)
			if err != nil {
				return false
			}
			if !reflect.DeepEqual(pack, before) {
				return false
			}
			if r.TotalDeclarations != len(decls) || r.FalsePositives > r.ViolationsDetected {
				return false
			}
			for _, m := range []float64{r.Accuracy, r.Precision, r.Recall, r.F1Score} {
				if m < 0 || m > 1 {
					return false
				}
			}
			if r.Accuracy > r.Recall || r.EstimatedRecovery < 0 {
				return false
			}

			sectors, tiers := 0, 0
			for _, s := range r.Sectors {
				sectors += s.Declarations
			}
			for _, n := range r.TierDistribution {
				tiers += n
			}
			return sectors == r.TotalDeclarations && tiers == r.TotalDeclarations && len(r.Recommendations) > 0
		},
		gen.SliceOf(genDeclaration()),
		gen.Float64Range(0, 1),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
