// Package printing renders payment receipts.
//
// ReceiptTemplate lays a receipt out as HTML with amounts in Indian
// grouping and in words. ChromedpRenderer prints that HTML to PDF through a
// headless Chrome, either launched locally or reached at a remote DevTools URL.
package printing
