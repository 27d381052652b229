package oracle

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/eriksjaastad/mend-go/internal/logger"
	"github.com/eriksjaastad/mend-go/internal/patch"
)

// Oracle drives a Client toward a patch that parses and validates
// against the failing source. Replies that miss the contract are fed
// back with the reason so the model can restate them.
type Oracle struct {
	Client Client

	// MaxRetries bounds the re-ask loop per suggestion. Zero means one
	// shot, negative means keep asking until the context ends.
	MaxRetries int

	// Concurrency caps parallel candidate sampling in SuggestN.
	Concurrency int
}

func New(client Client, maxRetries int) *Oracle {
	return &Oracle{Client: client, MaxRetries: maxRetries, Concurrency: 4}
}

// Suggest asks for a patch for the given failure. The returned patch
// has already passed Validate against req.Source; applying it can only
// fail verification.
func (o *Oracle) Suggest(ctx context.Context, req Request) (patch.Patch, error) {
	messages := []Message{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleUser, Content: BuildUserPrompt(req)},
	}

	var lastErr error
	for attempt := 0; o.MaxRetries < 0 || attempt <= o.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return patch.Patch{}, err
		}

		reply, err := o.Client.Chat(ctx, messages)
		if err != nil {
			return patch.Patch{}, fmt.Errorf("oracle %s: %w", o.Client.Name(), err)
		}

		p, err := ExtractPatch(reply)
		if err == nil {
			if verr := patch.Validate(req.Source, p); verr != nil {
				err = verr
			} else {
				logger.Debug("oracle produced a patch",
					"oracle", o.Client.Name(),
					"directives", len(p.Directives),
					"attempt", attempt+1)
				return p, nil
			}
		}

		lastErr = err
		logger.Warn("oracle reply rejected",
			"oracle", o.Client.Name(),
			"attempt", attempt+1,
			"reason", err.Error())
		messages = append(messages,
			Message{Role: RoleAssistant, Content: reply},
			Message{Role: RoleUser, Content: buildRestatePrompt(err)},
		)
	}

	return patch.Patch{}, fmt.Errorf("no usable patch after %d attempts: %w", o.MaxRetries+1, lastErr)
}

// SuggestN samples up to n candidate patches concurrently. Candidates
// that fail are dropped; an error comes back only when every sample
// failed.
func (o *Oracle) SuggestN(ctx context.Context, req Request, n int) ([]patch.Patch, error) {
	if n <= 1 {
		p, err := o.Suggest(ctx, req)
		if err != nil {
			return nil, err
		}
		return []patch.Patch{p}, nil
	}

	concurrency := o.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]*patch.Patch, n)
	failures := make([]error, n)
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			p, err := o.Suggest(gctx, req)
			if err != nil {
				failures[i] = fmt.Errorf("candidate %d: %w", i+1, err)
				return nil
			}
			results[i] = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var patches []patch.Patch
	for _, p := range results {
		if p != nil {
			patches = append(patches, *p)
		}
	}
	if len(patches) == 0 {
		return nil, errors.Join(failures...)
	}
	return patches, nil
}
