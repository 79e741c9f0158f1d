// Package render defines the boundary to the card renderer that turns an
// ordered track list into printable front and back sheets.
package render
