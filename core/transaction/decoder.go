package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
)

// GetData returns a fresh payload struct for the trade type.
func GetData(t TradeType) (Data, bool) {
	switch t {
	case TypeBuy:
		return &BuyData{}, true
	case TypeSell:
		return &SellData{}, true
	case TypeCreateMarket:
		return &CreateMarketData{}, true
	case TypeAuthorize:
		return &AuthorizeData{}, true
	case TypeSetPaused:
		return &SetPausedData{}, true
	case TypeGraduate:
		return &GraduateData{}, true
	case TypeRetryHandoff:
		return &RetryHandoffData{}, true
	default:
		return nil, false
	}
}

func (e *Executor) DecodeFromBytes(buf []byte) (*Trade, error) {
	var trade Trade
	err := json.Unmarshal(buf, &trade)

	if err != nil {
		return nil, err
	}

	if len(trade.Data) == 0 {
		return nil, errors.New("incorrect trade data")
	}

	d, ok := e.decodeTradeFunc(trade.Type)

	if !ok {
		return nil, fmt.Errorf("trade type %x is not registered", trade.Type)
	}

	err = json.Unmarshal(trade.Data, d)

	if err != nil {
		return nil, err
	}

	trade.SetDecodedData(d)

	return &trade, nil
}
