//go:build !debug

package rmq

const debugBuild = false
