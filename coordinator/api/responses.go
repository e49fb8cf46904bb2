package api

import (
	"fmt"
	"net/http"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/coordinator"
	"github.com/absmach/federator/ledger"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*campaignResponse)(nil)
	_ supermq.Response = (*receiptResponse)(nil)
	_ supermq.Response = (*statusResponse)(nil)
	_ supermq.Response = (*readModelResponse)(nil)
	_ supermq.Response = (*uploadResponse)(nil)
	_ supermq.Response = (*ackResponse)(nil)
)

type campaignResponse struct {
	campaign.Campaign
	created bool
}

func (c campaignResponse) Code() int {
	if c.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (c campaignResponse) Headers() map[string]string {
	if c.created {
		return map[string]string{
			"Location": fmt.Sprintf("/campaigns/%d", c.ID),
		}
	}

	return map[string]string{}
}

func (c campaignResponse) Empty() bool {
	return false
}

type receiptResponse struct {
	ledger.TxReceipt
}

func (r receiptResponse) Code() int {
	return http.StatusOK
}

func (r receiptResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r receiptResponse) Empty() bool {
	return false
}

type statusResponse struct {
	coordinator.Status
}

func (s statusResponse) Code() int {
	return http.StatusOK
}

func (s statusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s statusResponse) Empty() bool {
	return false
}

type readModelResponse struct {
	coordinator.ReadModel
}

func (r readModelResponse) Code() int {
	return http.StatusOK
}

func (r readModelResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r readModelResponse) Empty() bool {
	return false
}

type uploadResponse struct {
	CID string `json:"cid"`
}

func (u uploadResponse) Code() int {
	return http.StatusCreated
}

func (u uploadResponse) Headers() map[string]string {
	return map[string]string{}
}

func (u uploadResponse) Empty() bool {
	return false
}

// ackResponse acknowledges an aggregation callback. It is always 2xx so the
// external job never retries into a duplicate finalize attempt.
type ackResponse struct {
	Received bool `json:"received"`
}

func (a ackResponse) Code() int {
	return http.StatusOK
}

func (a ackResponse) Headers() map[string]string {
	return map[string]string{}
}

func (a ackResponse) Empty() bool {
	return false
}
