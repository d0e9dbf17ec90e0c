package eventmodels

import "fmt"

var ValidationErr = fmt.Errorf("signal validation failed")
var StoreUnavailableErr = fmt.Errorf("time series store unavailable")
