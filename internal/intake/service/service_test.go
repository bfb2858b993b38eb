package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"regportal/internal/audit"
	"regportal/internal/notify"
	"regportal/internal/outbound"
	regstore "regportal/internal/registry/store"
	dErrors "regportal/pkg/domain-errors"
	"regportal/pkg/requestcontext"
)

func newIntakeService(t *testing.T) (*Service, context.Context, *regstore.InMemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := regstore.NewInMemoryStore()
	tx := regstore.NewInMemoryTx()
	registry := notify.NewInMemoryRegistry(logger)
	fanout := notify.NewFanout(registry, nil, nil, logger)
	queue := outbound.NewQueue(logger)
	recorder := audit.NewRecorder(logger)

	svc := New(store, tx, fanout, queue, recorder, nil, logger, "CPC")
	ctx := requestcontext.WithTime(context.Background(),
		time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	return svc, ctx, store
}

func validSubmit(company string) SubmitRequest {
	return SubmitRequest{
		CompanyName: company,
		Country:     "LK",
		OfficerName: "Sunil Silva",
		Email:       "Sunil@" + company + ".example",
		Phone:       "0771234567",
		Designation: "Director",
	}
}

func TestSubmitAllocatesSequentialNumbers(t *testing.T) {
	svc, ctx, _ := newIntakeService(t)

	for i := 1; i <= 7; i++ {
		receipt, err := svc.Submit(ctx, validSubmit(fmt.Sprintf("company-%d", i)))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("CPC/COM/REG/2025/%04d", i), receipt.RegistrationNumber)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, ctx, _ := newIntakeService(t)

	cases := []struct {
		name string
		mut  func(*SubmitRequest)
	}{
		{"missing company name", func(r *SubmitRequest) { r.CompanyName = " " }},
		{"missing country", func(r *SubmitRequest) { r.Country = "" }},
		{"missing officer name", func(r *SubmitRequest) { r.OfficerName = "" }},
		{"missing email", func(r *SubmitRequest) { r.Email = "" }},
		{"missing phone", func(r *SubmitRequest) { r.Phone = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validSubmit("validco")
			tc.mut(&req)
			_, err := svc.Submit(ctx, req)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestSubmitDuplicateCompanyNameIsCaseInsensitive(t *testing.T) {
	svc, ctx, _ := newIntakeService(t)

	_, err := svc.Submit(ctx, validSubmit("Acme Oil"))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, validSubmit("acme oil"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Equal(t, "company with this name already exists", dErrors.MessageOf(err))

	// A failed intake must not burn a visible registration number.
	receipt, err := svc.Submit(ctx, validSubmit("Other Co"))
	require.NoError(t, err)
	assert.Equal(t, "CPC/COM/REG/2025/0002", receipt.RegistrationNumber)
}

func TestSubmitConcurrentNumbersAreUnique(t *testing.T) {
	svc, ctx, _ := newIntakeService(t)

	const submissions = 50
	var (
		mu   sync.Mutex
		seen = make(map[string]bool, submissions)
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < submissions; i++ {
		i := i
		g.Go(func() error {
			receipt, err := svc.Submit(gctx, validSubmit(fmt.Sprintf("parallel-%d", i)))
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[receipt.RegistrationNumber] {
				return fmt.Errorf("duplicate registration number %s", receipt.RegistrationNumber)
			}
			seen[receipt.RegistrationNumber] = true
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, seen, submissions)
}

func TestSubmitNormalizesEmail(t *testing.T) {
	svc, ctx, store := newIntakeService(t)

	req := validSubmit("Lowercase Co")
	req.Email = "MiXeD@Example.COM"
	receipt, err := svc.Submit(ctx, req)
	require.NoError(t, err)

	oc, err := store.FindOfficerContext(ctx, receipt.RegistrationNumber)
	require.NoError(t, err)
	assert.Equal(t, "mixed@example.com", oc.Email)
}
