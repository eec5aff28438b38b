// Package mcptool exposes the review engine as Model Context Protocol tools
// so that editor agents can request reviews over stdio.
package mcptool
