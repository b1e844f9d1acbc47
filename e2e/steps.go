package e2e

import (
	"github.com/cucumber/godog"

	"foodbridge/e2e/steps/auth"
	"foodbridge/e2e/steps/common"
	"foodbridge/e2e/steps/donations"
	"foodbridge/e2e/steps/ratelimit"
)

// RegisterSteps wires every step package against one scenario context.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
	donations.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
