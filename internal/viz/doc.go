// Package viz provides terminal views of simulated trajectories.
//
//   - [Viewer]: Bubble Tea model browsing one state series at a time
//   - [Plot]: asciigraph line chart used by the CLI and the viewer
//   - Theme selection with 3 built-in color schemes
//
// # Key Bindings
//
//	←/→ - Previous/next series
//	T   - Cycle color themes
//	Q   - Quit
package viz
