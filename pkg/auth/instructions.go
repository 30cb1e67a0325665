package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowPINGuide explains how to authorize the application for a new document
func ShowPINGuide(w io.Writer, authURL string) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "AUTHORIZE BOOKBYLINE")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "This document has not been posted before and needs an account to post to.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 1: Sign in as the account that should post this document")
	fmt.Fprintln(w, "STEP 2: Open this URL in your browser:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "   %s\n", authURL)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 3: Click 'Authorize app' and copy the PIN shown")
	fmt.Fprintln(w, "STEP 4: Paste the PIN below")
	fmt.Fprintln(w)
}

// ShowConsumerGuide explains where the application keys come from
func ShowConsumerGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "APPLICATION KEYS")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Bookbyline posts through an application registered on the developer portal.")
	fmt.Fprintln(w, "   1. Open https://developer.twitter.com/en/portal/projects-and-apps")
	fmt.Fprintln(w, "   2. Select your app and open 'Keys and tokens'")
	fmt.Fprintln(w, "   3. Copy the 'API Key' and 'API Key Secret' (consumer keys)")
	fmt.Fprintln(w, "   4. Make sure the app has Read and Write permissions")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "The keys are stored in the system keychain. In headless environments set\n")
	fmt.Fprintf(w, "%s and %s instead.\n", EnvConsumerKey, EnvConsumerSecret)
	fmt.Fprintln(w)
}
