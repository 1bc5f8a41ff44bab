package e2e

import (
	"github.com/cucumber/godog"

	"amicable/e2e/steps/accident"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register accident and statement steps
	accident.RegisterSteps(ctx, tc)
}
