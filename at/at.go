package at

import "fmt"

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = ">"

	// Response Codes
	OK    = "OK"
	ERROR = "ERROR"

	// Basic commands
	CmdAT              = "AT"
	CmdFirmwareVersion = "AT+CGMR"
	CmdSubEdition      = "AT+CSUB"
	CmdReset           = "AT+CRESET"

	// HTTP service commands
	CmdHTTPInit   = "AT+HTTPINIT"
	CmdHTTPTerm   = "AT+HTTPTERM"
	CmdHTTPSSLCfg = `AT+HTTPPARA="SSLCFG",1`
	CmdHTTPGet    = "AT+HTTPACTION=0"
	CmdHTTPHead   = "AT+HTTPHEAD"

	// Response markers. MarkHTTPStatus pins the GET method prefix so the
	// numeric field that follows is the HTTP status code, not the method.
	MarkHTTPRead       = "+HTTPREAD: "
	MarkHTTPStatus     = "+HTTPACTION: 0,"
	FieldContentLength = "Content-Length: "

	// Firmware update notifications, emitted asynchronously after AT+CRESET.
	MarkUpdateProgress = "+CFOTA: UPDATE:"
	MarkUpdateSuccess  = "+CFOTA: UPDATE SUCCESS"
	MarkDeviceReady    = "QCRDY"

	// StatusOK is the HTTP status the module must report for a successful GET.
	StatusOK = 200
)

// HTTPParaURL builds the command that points the module's HTTP service at url.
func HTTPParaURL(url string) string {
	return fmt.Sprintf(`AT+HTTPPARA="URL","%s"`, url)
}

// HTTPRead requests the next batch of response body data, up to maxLen bytes.
// The module answers with one or more "+HTTPREAD: <len>" segments.
func HTTPRead(maxLen int) string {
	return fmt.Sprintf("AT+HTTPREAD=0,%d", maxLen)
}

// LFOTANotify announces the size of the firmware image about to be staged.
func LFOTANotify(size int) string {
	return fmt.Sprintf("AT+LFOTA=0,%d", size)
}

// LFOTAStart asks the module to begin receiving size raw bytes. The module
// signals readiness with a bare ">" prompt, not a terminated line.
func LFOTAStart(size int) string {
	return fmt.Sprintf("AT+LFOTA=1,%d", size)
}
