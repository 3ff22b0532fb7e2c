package workflow

import "math"

// SeededRandom returns the fractional part of sin(seed)*10000. It is a pure
// function of seed so simulated runs come out the same every time.
func SeededRandom(seed float64) float64 {
	x := math.Sin(seed) * 10000
	return x - math.Floor(x)
}

// roundHalfUp rounds the way browsers round, so x.5 goes up.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

var devices = []Device{
	{ID: "pixel7", Label: "Pixel 7", OS: "Android 14"},
	{ID: "s22", Label: "Samsung S22", OS: "Android 13"},
	{ID: "iphone14", Label: "iPhone 14", OS: "iOS 17"},
	{ID: "iphonese", Label: "iPhone SE", OS: "iOS 16"},
}

// Devices returns the static device targets every variant is run on.
func Devices() []Device {
	out := make([]Device, len(devices))
	copy(out, devices)
	return out
}

// DeviceByID looks up a device target.
func DeviceByID(id string) (Device, bool) {
	for _, d := range devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

func initialConnectors() []Connector {
	return []Connector{
		{Key: SourceFirebase, Name: "Firebase", Status: StatusConnected, TokenHint: "exp in 3 days"},
		{Key: SourceAmplitude, Name: "Amplitude", Status: StatusDisconnected},
		{Key: SourceMixpanel, Name: "Mixpanel", Status: StatusConnected},
		{Key: SourceSegment, Name: "Segment", Status: StatusConnected},
	}
}

func pct(v float64) *float64 { return &v }

func syncedFunnel() []FunnelStep {
	return []FunnelStep{
		{Name: "app_open", Users: 10000},
		{Name: "signup_completed", Users: 7200, DropoffPct: pct(28)},
		{Name: "onboarding_step_1", Users: 6100, DropoffPct: pct(15)},
		{Name: "onboarding_completed", Users: 4200, DropoffPct: pct(31)},
	}
}

func syncedEvents() []EventCount {
	return []EventCount{
		{Event: "cta_clicked", Count7d: 12400},
		{Event: "permission_denied", Count7d: 1800},
		{Event: "form_validation_error", Count7d: 960},
	}
}

const syncedNotes = "partial week data"

// variantTemplates is the fixed batch GenerateVariants hands out. Content does
// not depend on the goal or metrics.
var variantTemplates = []Variant{
	{
		Title:        "Remove optional field in step 2",
		Hypothesis:   "Reduce friction by shortening form",
		Risk:         RiskLow,
		PatchSummary: PatchSummary{FilesChanged: 3, Additions: 42, Deletions: 18},
		DiffText: `- <TextField label="Referral Code" />
+ {/* Removed optional referral field for speed */}`,
		UIPreview: UIPreview{BeforeLabel: "Full Form", AfterLabel: "Shortened Form"},
	},
	{
		Title:        "Primary CTA emphasis + copy change",
		Hypothesis:   "Increase clarity of action",
		Risk:         RiskMedium,
		PatchSummary: PatchSummary{FilesChanged: 2, Additions: 21, Deletions: 9},
		DiffText: `- <Button>Continue</Button>
+ <Button variant="primary">Start Now</Button>`,
		UIPreview: UIPreview{BeforeLabel: "Continue", AfterLabel: "Start Now"},
	},
	{
		Title:        "Inline permission pre-prompt",
		Hypothesis:   "Prepare users before system dialog",
		Risk:         RiskMedium,
		PatchSummary: PatchSummary{FilesChanged: 4, Additions: 63, Deletions: 11},
		DiffText:     `+ <PermissionExplainer />`,
		UIPreview:    UIPreview{BeforeLabel: "System Dialog", AfterLabel: "Explainer + Dialog"},
	},
}

var (
	simulatedLogs        = []string{"Build OK", "Installed", "Navigation OK"}
	simulatedScreenshots = []string{"before.png", "after.png"}
)

const (
	passThreshold      = 0.15
	crashFreeThreshold = 0.1
	recommendedIndex   = 1
)

const (
	whyRecommended = "Improved CTA clarity without guardrail violations"
	whyDefault     = "Moderate friction reduction with minor tradeoffs"
)
