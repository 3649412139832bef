// Package mocks provides generated mock implementations for the pipeline ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the interfaces in internal/core. The mocks are generated using go:generate
// directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mocks for the persistence and adapter ports from internal/core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=core_mocks.go github.com/genrelay/genrelay/internal/core JobRepository,OrphanRepository,LeaseRepository,GenerationProvider,MessageChannel,CallbackGuard
