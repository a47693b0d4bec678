package orders

import "cedra_orders/internal/apperr"

var (
	ErrMissingProduct     = apperr.BadRequest("Aucun produit fourni", nil)
	ErrEmptyCart          = apperr.BadRequest("Panier vide", nil)
	ErrInvalidQuantity    = apperr.BadRequest("Quantité invalide", nil)
	ErrInvalidStatus      = apperr.BadRequest("Statut de commande invalide", nil)
	ErrMissingSession     = apperr.BadRequest("Session de paiement manquante", nil)
	ErrPaymentNotVerified = apperr.BadRequest("Le paiement n'a pas pu être vérifié", nil)
	ErrOrderNotFound      = apperr.NotFound("Commande introuvable", nil)
	ErrUnauthenticated    = apperr.Unauthorized("Utilisateur non authentifié", nil)
)

func productNotFound(id string, cause error) error {
	return apperr.NotFound("Produit introuvable: "+id, cause)
}

func storeFailure(cause error) error {
	return apperr.Internal("Erreur base de données", cause)
}

func providerFailure(cause error) error {
	return apperr.Integration("Erreur du service de paiement", cause)
}
