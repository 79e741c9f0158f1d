// Package cardsheet renders a playlist as two printable PDF sheets of
// playing cards. Each front card carries a QR code of the track's play link;
// the back sheet carries artist, year and title. Back pages mirror the
// column order so a duplex print lines each back up with its front.
//
// Output is byte-for-byte deterministic for the same tracks and clock.
// Renders that share a playlist and second get a numeric suffix instead of
// replacing each other's files.
package cardsheet
