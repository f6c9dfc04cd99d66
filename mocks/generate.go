package mocks

//go:generate mockgen -destination=./mock_feed.go -package=mocks github.com/rxtech-lab/argo-engine/internal/feed Feed
//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/rxtech-lab/argo-engine/internal/engine Broker
//go:generate mockgen -destination=./mock_observer.go -package=mocks github.com/rxtech-lab/argo-engine/internal/engine Observer
//go:generate mockgen -destination=./mock_kernel.go -package=mocks github.com/rxtech-lab/argo-engine/internal/node Kernel
