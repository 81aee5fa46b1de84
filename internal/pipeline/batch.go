package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/keagan/reelforge/internal/niche"
	"github.com/keagan/reelforge/internal/plan"
)

// Manifest lists independent render jobs. JSON manifests parse as YAML.
type Manifest struct {
	Jobs []Job `yaml:"jobs"`
}

// Job is one manifest entry. Relative paths are resolved against the
// manifest's directory.
type Job struct {
	Name  string   `yaml:"name"`
	Clips []string `yaml:"clips"`
	// PlanFile is an edit plan JSON document; empty uses the fallback plan
	PlanFile  string `yaml:"plan"`
	Niche     string `yaml:"niche"`
	Music     string `yaml:"music"`
	Narration string `yaml:"narration"`
	Output    string `yaml:"output"`
}

// LoadManifest reads a batch manifest
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("manifest %s has no jobs", path)
	}

	base := filepath.Dir(path)
	for i := range m.Jobs {
		m.Jobs[i].resolve(base)
		if m.Jobs[i].Name == "" {
			m.Jobs[i].Name = fmt.Sprintf("job-%d", i+1)
		}
	}
	return &m, nil
}

func (j *Job) resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i, c := range j.Clips {
		j.Clips[i] = abs(c)
	}
	j.PlanFile = abs(j.PlanFile)
	j.Music = abs(j.Music)
	j.Narration = abs(j.Narration)
	j.Output = abs(j.Output)
}

// Request converts the job into a render request
func (j *Job) Request() (Request, error) {
	req := Request{
		Clips:     j.Clips,
		Niche:     niche.Parse(j.Niche),
		Music:     j.Music,
		Narration: j.Narration,
		Output:    j.Output,
	}
	if j.PlanFile != "" {
		p, err := plan.ParseFile(j.PlanFile)
		if err != nil {
			return Request{}, err
		}
		req.Plan = p
	}
	return req, nil
}

// BatchResult is the outcome of one job
type BatchResult struct {
	Job    string
	Result *Result
	Err    error
}

// RenderBatch renders jobs with at most concurrency renders in flight.
// A failed job does not stop the others; results are in job order.
func (p *Pipeline) RenderBatch(ctx context.Context, jobs []Job, concurrency int) []BatchResult {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]BatchResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, job := range jobs {
		results[i].Job = job.Name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			req, err := job.Request()
			if err != nil {
				results[i].Err = err
				return nil
			}

			res, err := p.Render(ctx, req)
			if err != nil {
				p.logger.Error().Err(err).Str("job", job.Name).Msg("job failed")
			}
			results[i].Result = res
			results[i].Err = err
			return nil
		})
	}

	g.Wait()
	return results
}
