// Package infopv publishes alarm summaries to info PVs.
//
// Updates are queued per PV with the latest text winning. A background
// loop writes them, retrying failed writes until a grace period runs out.
package infopv
