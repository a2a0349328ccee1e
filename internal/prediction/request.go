package prediction

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/i474232898/flight-delay-prediction/internal/common"
)

// Request is a prediction request after alias resolution. The alias tag
// lists the accepted body keys in lookup order.
type Request struct {
	Origin      string `alias:"sg_iata_origem|origem" validate:"required,len=3,alpha"`
	Destination string `alias:"sg_iata_destino|destino" validate:"required,len=3,alpha,nefield=Origin"`
	Departure   string `alias:"dt_partida_prevista|data_partida" validate:"required"`
}

// payload has one field per accepted key.
type payload struct {
	SgIataOrigem      string `json:"sg_iata_origem"`
	Origem            string `json:"origem"`
	SgIataDestino     string `json:"sg_iata_destino"`
	Destino           string `json:"destino"`
	DtPartidaPrevista string `json:"dt_partida_prevista"`
	DataPartida       string `json:"data_partida"`
}

// ParseRequest decodes a JSON body and resolves the field aliases. A blank
// value falls through to the next alias.
func ParseRequest(body []byte) (Request, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return Request{}, ErrEmptyBody
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Request{}, invalid("request body must be a JSON object with string fields")
	}

	return Request{
		Origin:      common.FirstNonBlank(p.SgIataOrigem, p.Origem),
		Destination: common.FirstNonBlank(p.SgIataDestino, p.Destino),
		Departure:   common.FirstNonBlank(p.DtPartidaPrevista, p.DataPartida),
	}.normalized(), nil
}

func (r Request) normalized() Request {
	return Request{
		Origin:      strings.ToUpper(strings.TrimSpace(r.Origin)),
		Destination: strings.ToUpper(strings.TrimSpace(r.Destination)),
		Departure:   strings.TrimSpace(r.Departure),
	}
}
