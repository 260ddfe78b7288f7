// Package fins encodes and decodes FINS (Factory Interface Network Service) command and response frames.
//
// A FINS frame opens with a 10-byte control prefix:
//
//	ICF RSV GCT DNA DA1 DA2 SNA SA1 SA2 SID
//
// followed by the command code (MRC, SRC) and its parameters. Responses mirror the layout with the
// source and destination addresses swapped, the SID echoed verbatim, and a two-byte end code
// (MRES, SRES) in front of the returned data.
//
// Only the memory area read command is modelled; the frame level helpers (Header, ValidateResponse)
// are command agnostic.
package fins
