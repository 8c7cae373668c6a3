// Package control is the inbound MQTT command surface.
//
// It maps quantus/miner/command/{start,stop,repair,unlock} messages to
// supervisor operations. The start payload may carry JSON overrides
// for chain, rewards address, extra args and file logging; the other
// commands are payload-free.
//
// The controller deliberately stays thin: validation, prerequisites
// and all state live in the miner package.
package control
