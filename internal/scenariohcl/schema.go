// Package scenariohcl loads scenario definition files. A scenario file is
// HCL declaring which activities from the loaded profile take part in a run,
// how priority groups weight them, and where the run executes:
//
//	scenario "bushbuckridge" {
//	  description        = "Dry season comparison"
//	  extent             = [30.7, -24.8, 32.1, -24.2]
//	  activities         = ["22222222-...-222222222222"]
//	  carbon_coefficient = 0.3
//
//	  priority_group "climate" {
//	    value = 4
//	    pwls  = ["33333333-...-333333333333"]
//	  }
//
//	  sieve {
//	    enabled   = true
//	    threshold = 9
//	  }
//
//	  processing {
//	    mode    = "remote"
//	    api_url = "https://cplus.example.org/api"
//	  }
//	}
package scenariohcl

import "github.com/hashicorp/hcl/v2"

// fileSchema is the top-level structure of one scenario file.
type fileSchema struct {
	Scenarios []*scenarioBlock `hcl:"scenario,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

// scenarioBlock is a `scenario` block as written by the user.
type scenarioBlock struct {
	Name              string           `hcl:"name,label"`
	Description       string           `hcl:"description,optional"`
	Extent            []float64        `hcl:"extent,optional"`
	Activities        []string         `hcl:"activities,optional"`
	CarbonCoefficient float64          `hcl:"carbon_coefficient,optional"`
	Groups            []*groupBlock    `hcl:"priority_group,block"`
	Sieve             *sieveBlock      `hcl:"sieve,block"`
	NPV               *npvBlock        `hcl:"npv,block"`
	Processing        *processingBlock `hcl:"processing,block"`
}

// groupBlock assigns an influence value to a set of priority layers.
type groupBlock struct {
	Name  string   `hcl:"name,label"`
	Value float64  `hcl:"value"`
	Pwls  []string `hcl:"pwls"`
}

// sieveBlock configures the small-patch filter.
type sieveBlock struct {
	Enabled   bool `hcl:"enabled"`
	Threshold int  `hcl:"threshold,optional"`
}

// npvBlock enables net present value weighting. Each projection block is
// labelled with the activity uuid it belongs to.
type npvBlock struct {
	DiscountRate float64            `hcl:"discount_rate"`
	Weight       float64            `hcl:"weight"`
	Projections  []*projectionBlock `hcl:"projection,block"`
}

// projectionBlock holds one activity's yearly revenues and costs.
type projectionBlock struct {
	Activity string    `hcl:"activity,label"`
	Revenues []float64 `hcl:"revenues"`
	Costs    []float64 `hcl:"costs"`
}

// processingBlock selects local or remote execution.
type processingBlock struct {
	Mode   string `hcl:"mode"`
	APIURL string `hcl:"api_url,optional"`
	APIKey string `hcl:"api_key,optional"`
}
