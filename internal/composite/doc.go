// Package composite renders page images onto fixed-size video frames.
//
// A page is scaled to fit the frame without cropping and centered over a
// blurred, stretched copy of itself, so letterbox bars carry the page's own
// colors instead of black. The blur runs on a downscaled background and is
// scaled back up, which keeps large radii affordable at 1080p.
package composite
