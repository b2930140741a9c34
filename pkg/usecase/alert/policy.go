package alert

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
)

const policyQuery = "data.alert.suppress"

// Policy is a user supplied Rego rule set deciding whether an issue is suppressed. The
// rule `suppress` in package `alert` is evaluated with the issue as input.
type Policy struct {
	query *rego.PreparedEvalQuery
}

// LoadPolicy prepares all *.rego files in dir. It returns nil when dir is empty or holds
// no policy files.
func LoadPolicy(ctx context.Context, dir string) (*Policy, error) {
	if dir == "" {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files", goerr.V("dir", dir))
	}
	if len(files) == 0 {
		return nil, nil
	}

	options := []func(*rego.Rego){rego.Query(policyQuery)}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		options = append(options, rego.Module(file, string(data)))
	}

	return newPolicy(ctx, options)
}

// NewPolicyFromModule prepares a policy from a single in-memory module.
func NewPolicyFromModule(ctx context.Context, name, module string) (*Policy, error) {
	return newPolicy(ctx, []func(*rego.Rego){
		rego.Query(policyQuery),
		rego.Module(name, module),
	})
}

func newPolicy(ctx context.Context, options []func(*rego.Rego)) (*Policy, error) {
	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare alert policy")
	}
	return &Policy{query: &prepared}, nil
}

// Suppress evaluates the policy for an issue. An undefined or non-boolean result means
// the issue is not suppressed.
func (p *Policy) Suppress(ctx context.Context, r *model.AnalysisResult, key string) (bool, error) {
	if p == nil {
		return false, nil
	}

	input := map[string]any{
		"app":           r.App,
		"summary":       r.Summary,
		"detail":        r.Detail,
		"issue_type":    r.IssueType,
		"issue_message": r.IssueText(),
		"confidence":    r.Confidence,
		"key":           key,
	}

	rs, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate alert policy")
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}

	suppress, _ := rs[0].Expressions[0].Value.(bool)
	return suppress, nil
}
