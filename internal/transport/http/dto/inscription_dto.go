package dto

type CreateInscriptionRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type CreateInscriptionResponse struct {
	Status string `json:"status"`
	URL    string `json:"url"`
	Token  string `json:"token"`
}

type DeleteInscriptionRequest struct {
	InscriptionID string `json:"inscriptionId"`
	UserID        string `json:"userId"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
