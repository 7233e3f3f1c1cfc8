package transbank

type startInscriptionRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	ResponseURL string `json:"response_url"`
}

type StartInscriptionResponse struct {
	Token     string `json:"token"`
	URLWebpay string `json:"url_webpay"`
}

type FinishInscriptionResponse struct {
	ResponseCode      int    `json:"response_code"`
	TbkUser           string `json:"tbk_user"`
	AuthorizationCode string `json:"authorization_code"`
	CardType          string `json:"card_type"`
	CardNumber        string `json:"card_number"`
}

type deleteInscriptionRequest struct {
	TbkUser  string `json:"tbk_user"`
	Username string `json:"username"`
}

type authorizeRequest struct {
	Username string            `json:"username"`
	TbkUser  string            `json:"tbk_user"`
	BuyOrder string            `json:"buy_order"`
	Details  []AuthorizeDetail `json:"details"`
}

// AuthorizeDetail is one store charge inside a mall transaction.
type AuthorizeDetail struct {
	CommerceCode       string `json:"commerce_code"`
	BuyOrder           string `json:"buy_order"`
	Amount             int64  `json:"amount"`
	InstallmentsNumber int    `json:"installments_number"`
}

type AuthorizeResponse struct {
	BuyOrder        string                    `json:"buy_order"`
	SessionID       string                    `json:"session_id,omitempty"`
	CardDetail      CardDetail                `json:"card_detail"`
	AccountingDate  string                    `json:"accounting_date,omitempty"`
	TransactionDate string                    `json:"transaction_date,omitempty"`
	Details         []AuthorizeResponseDetail `json:"details"`
}

type CardDetail struct {
	CardNumber string `json:"card_number"`
}

type AuthorizeResponseDetail struct {
	Amount             int64  `json:"amount"`
	Status             string `json:"status"`
	AuthorizationCode  string `json:"authorization_code"`
	PaymentTypeCode    string `json:"payment_type_code"`
	ResponseCode       int    `json:"response_code"`
	InstallmentsNumber int    `json:"installments_number"`
	CommerceCode       string `json:"commerce_code"`
	BuyOrder           string `json:"buy_order"`
}

type refundRequest struct {
	CommerceCode   string `json:"commerce_code"`
	DetailBuyOrder string `json:"detail_buy_order"`
	Amount         int64  `json:"amount"`
}

type RefundResponse struct {
	Type              string  `json:"type"`
	AuthorizationCode string  `json:"authorization_code,omitempty"`
	AuthorizationDate string  `json:"authorization_date,omitempty"`
	NullifiedAmount   float64 `json:"nullified_amount,omitempty"`
	Balance           float64 `json:"balance,omitempty"`
	ResponseCode      int     `json:"response_code,omitempty"`
}
