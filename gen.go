package raftlog

//go:generate mockgen -package raftlogmock -source callback.go -destination internal/mocks/raftlogmock/raftlogmock.go
