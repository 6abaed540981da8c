package services

import (
	"encoding/json"
	"fmt"
	"log"
	"nestie-server/models"
	"nestie-server/storage"
	"nestie-server/utils"
	"time"
)

// NotificationService handles in-app notification records and push delivery
type NotificationService struct{}

// NewNotificationService creates a new notification service instance
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotificationData represents the data payload for notifications
type NotificationData struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	LeaseID   string `json:"leaseId,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	// Deep linking data
	Screen string `json:"screen"`           // Target screen to navigate to
	Params string `json:"params"`           // JSON string of navigation parameters
	Action string `json:"action,omitempty"` // Specific action to perform
}

// getUserPushTokens retrieves all push tokens for a user
func (ns *NotificationService) getUserPushTokens(userID uint) ([]string, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %v", err)
	}

	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, fmt.Errorf("user has notifications disabled or no tokens")
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %v", err)
	}

	return tokens, nil
}

// SendNotificationToUser sends a push notification to a specific user
func (ns *NotificationService) SendNotificationToUser(userID uint, title, body string, data NotificationData) error {
	tokens, err := ns.getUserPushTokens(userID)
	if err != nil {
		log.Printf("Failed to get push tokens for user %d: %v", userID, err)
		return err
	}

	dataMap := map[string]string{
		"type":      data.Type,
		"id":        data.ID,
		"leaseId":   data.LeaseID,
		"paymentId": data.PaymentID,
		"userId":    data.UserID,
		"screen":    data.Screen,
		"params":    data.Params,
		"action":    data.Action,
	}

	var lastError error
	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, dataMap); err != nil {
			log.Printf("Failed to send notification to token %s: %v", token, err)
			lastError = err
		}
	}

	return lastError
}

// Notify persists an in-app notification row, then attempts push delivery.
// Push failures are logged and never bubble up: the record is the source of truth.
func (ns *NotificationService) Notify(userID uint, nType, title, message, priority, refType string, refID uint, actionURL string, data NotificationData) {
	record := models.Notification{
		UserID:    userID,
		Type:      nType,
		Title:     title,
		Message:   message,
		Priority:  priority,
		RefType:   refType,
		RefID:     refID,
		ActionURL: actionURL,
	}
	if err := storage.DB.Create(&record).Error; err != nil {
		log.Printf("❌ Failed to persist notification for user %d: %v", userID, err)
	}

	if err := ns.SendNotificationToUser(userID, title, message, data); err != nil {
		log.Printf("Push delivery for notification %d skipped/failed: %v", record.ID, err)
	}
}

// SendLeaseCreatedNotificationToTenant notifies the tenant a draft lease awaits their signature
func (ns *NotificationService) SendLeaseCreatedNotificationToTenant(leaseID, tenantID uint, propertyTitle string) {
	title := "📄 Nouveau Contrat de Location"
	body := fmt.Sprintf("Un contrat de location pour %s est prêt pour votre signature.", propertyTitle)

	params := fmt.Sprintf(`{"leaseId": %d}`, leaseID)
	data := NotificationData{
		Type:    "lease_created",
		ID:      fmt.Sprintf("%d", leaseID),
		LeaseID: fmt.Sprintf("%d", leaseID),
		Screen:  "LeaseDetails",
		Params:  params,
		Action:  "sign_lease",
	}

	ns.Notify(tenantID, "lease_created", title, body, "normal", "lease", leaseID, fmt.Sprintf("/leases/%d", leaseID), data)
}

// SendLeaseSignatureProgressNotification tells the other party one signature is in
func (ns *NotificationService) SendLeaseSignatureProgressNotification(leaseID, userID uint, signedParty string) {
	title := "✍️ Signature Enregistrée"
	body := fmt.Sprintf("La partie %s a signé le contrat. Votre signature est attendue.", signedParty)

	data := NotificationData{
		Type:    "lease_signature",
		ID:      fmt.Sprintf("%d", leaseID),
		LeaseID: fmt.Sprintf("%d", leaseID),
		Screen:  "LeaseDetails",
		Params:  fmt.Sprintf(`{"leaseId": %d}`, leaseID),
		Action:  "sign_lease",
	}

	ns.Notify(userID, "lease_signature", title, body, "normal", "lease", leaseID, fmt.Sprintf("/leases/%d", leaseID), data)
}

// SendLeaseActivatedNotification notifies a party that the lease is now active
func (ns *NotificationService) SendLeaseActivatedNotification(leaseID, userID uint, propertyTitle string) {
	title := "🎉 Contrat Activé!"
	body := fmt.Sprintf("Le contrat de location pour %s est maintenant actif.", propertyTitle)

	data := NotificationData{
		Type:    "lease_activated",
		ID:      fmt.Sprintf("%d", leaseID),
		LeaseID: fmt.Sprintf("%d", leaseID),
		Screen:  "LeaseDetails",
		Params:  fmt.Sprintf(`{"leaseId": %d}`, leaseID),
		Action:  "view_lease",
	}

	ns.Notify(userID, "lease_activated", title, body, "normal", "lease", leaseID, fmt.Sprintf("/leases/%d", leaseID), data)
}

// SendLeaseTerminatedNotification notifies a party of lease termination
func (ns *NotificationService) SendLeaseTerminatedNotification(leaseID, userID uint, propertyTitle string) {
	title := "🔚 Contrat Résilié"
	body := fmt.Sprintf("Le contrat de location pour %s a été résilié.", propertyTitle)

	data := NotificationData{
		Type:    "lease_terminated",
		ID:      fmt.Sprintf("%d", leaseID),
		LeaseID: fmt.Sprintf("%d", leaseID),
		Screen:  "LeaseDetails",
		Params:  fmt.Sprintf(`{"leaseId": %d}`, leaseID),
		Action:  "view_lease",
	}

	ns.Notify(userID, "lease_terminated", title, body, "high", "lease", leaseID, fmt.Sprintf("/leases/%d", leaseID), data)
}

// SendDepositReturnScheduledNotification tells the tenant their deposit return is scheduled
func (ns *NotificationService) SendDepositReturnScheduledNotification(leaseID, tenantID uint, deposit float64, returnDate time.Time) {
	title := "💰 Retour de Caution Programmé"
	body := fmt.Sprintf("Le retour de votre caution de %.0f est programmé pour le %s.", deposit, returnDate.Format("02/01/2006"))

	data := NotificationData{
		Type:    "deposit_return",
		ID:      fmt.Sprintf("%d", leaseID),
		LeaseID: fmt.Sprintf("%d", leaseID),
		Screen:  "LeaseDetails",
		Params:  fmt.Sprintf(`{"leaseId": %d}`, leaseID),
	}

	ns.Notify(tenantID, "deposit_return", title, body, "normal", "lease", leaseID, fmt.Sprintf("/leases/%d", leaseID), data)
}

// SendPaymentReceivedNotification confirms a rent payment to the tenant
func (ns *NotificationService) SendPaymentReceivedNotification(paymentID, leaseID, tenantID uint, amount float64) {
	title := "✅ Paiement Reçu"
	body := fmt.Sprintf("Votre paiement de loyer de %.0f a été enregistré. Merci!", amount)

	data := NotificationData{
		Type:      "payment_received",
		ID:        fmt.Sprintf("%d", paymentID),
		LeaseID:   fmt.Sprintf("%d", leaseID),
		PaymentID: fmt.Sprintf("%d", paymentID),
		Screen:    "PaymentHistory",
		Params:    fmt.Sprintf(`{"paymentId": %d, "leaseId": %d}`, paymentID, leaseID),
	}

	ns.Notify(tenantID, "payment_received", title, body, "normal", "payment", paymentID, fmt.Sprintf("/payments/%d", paymentID), data)
}

// SendPartialPaymentReminderNotification reminds the tenant about a remaining balance
func (ns *NotificationService) SendPartialPaymentReminderNotification(paymentID, leaseID, tenantID uint, balance float64) {
	title := "⏳ Paiement Partiel Enregistré"
	body := fmt.Sprintf("Paiement partiel reçu. Il reste %.0f à régler pour ce mois.", balance)

	data := NotificationData{
		Type:      "payment_partial",
		ID:        fmt.Sprintf("%d", paymentID),
		LeaseID:   fmt.Sprintf("%d", leaseID),
		PaymentID: fmt.Sprintf("%d", paymentID),
		Screen:    "PaymentHistory",
		Params:    fmt.Sprintf(`{"paymentId": %d, "leaseId": %d}`, paymentID, leaseID),
		Action:    "pay_balance",
	}

	ns.Notify(tenantID, "payment_partial", title, body, "normal", "payment", paymentID, fmt.Sprintf("/payments/%d", paymentID), data)
}

// SendPaymentOverdueNotification warns the tenant a payment is overdue
func (ns *NotificationService) SendPaymentOverdueNotification(paymentID, leaseID, tenantID uint, balance, lateFee float64, daysOverdue int) {
	title := "⚠️ Loyer en Retard"
	body := fmt.Sprintf("Votre loyer est en retard de %d jours. Montant dû: %.0f (pénalité de %.0f incluse).", daysOverdue, balance, lateFee)

	data := NotificationData{
		Type:      "payment_overdue",
		ID:        fmt.Sprintf("%d", paymentID),
		LeaseID:   fmt.Sprintf("%d", leaseID),
		PaymentID: fmt.Sprintf("%d", paymentID),
		Screen:    "PaymentHistory",
		Params:    fmt.Sprintf(`{"paymentId": %d, "leaseId": %d}`, paymentID, leaseID),
		Action:    "pay_balance",
	}

	ns.Notify(tenantID, "payment_overdue", title, body, "high", "payment", paymentID, fmt.Sprintf("/payments/%d", paymentID), data)
}

// SendOverdueEscalationNotificationToAgent escalates a long-overdue payment to the agent
func (ns *NotificationService) SendOverdueEscalationNotificationToAgent(paymentID, leaseID, agentID uint, tenantName string, daysOverdue int) {
	title := "🚨 Escalade: Loyer Impayé"
	body := fmt.Sprintf("Le loyer de %s est impayé depuis %d jours. Une action est requise.", tenantName, daysOverdue)

	data := NotificationData{
		Type:      "payment_escalation",
		ID:        fmt.Sprintf("%d", paymentID),
		LeaseID:   fmt.Sprintf("%d", leaseID),
		PaymentID: fmt.Sprintf("%d", paymentID),
		Screen:    "AgentPayments",
		Params:    fmt.Sprintf(`{"paymentId": %d, "leaseId": %d}`, paymentID, leaseID),
		Action:    "review_payment",
	}

	ns.Notify(agentID, "payment_escalation", title, body, "high", "payment", paymentID, fmt.Sprintf("/payments/%d", paymentID), data)
}

// SendRenewalOfferNotification tells a party a renewal offer is on the table
func (ns *NotificationService) SendRenewalOfferNotification(offerID, leaseID, userID uint, propertyTitle string, proposedRent float64) {
	title := "🔄 Offre de Renouvellement"
	body := fmt.Sprintf("Une offre de renouvellement pour %s est disponible (nouveau loyer: %.0f).", propertyTitle, proposedRent)

	data := NotificationData{
		Type:    "renewal_offer",
		ID:      fmt.Sprintf("%d", offerID),
		LeaseID: fmt.Sprintf("%d", leaseID),
		Screen:  "RenewalOffer",
		Params:  fmt.Sprintf(`{"offerId": %d, "leaseId": %d}`, offerID, leaseID),
		Action:  "review_offer",
	}

	ns.Notify(userID, "renewal_offer", title, body, "normal", "renewal_offer", offerID, fmt.Sprintf("/renewals/%d", offerID), data)
}

// SendMaintenanceNotificationToAgent tells the agent a maintenance request came in
func (ns *NotificationService) SendMaintenanceNotificationToAgent(requestID, leaseID, agentID uint, priority, title_ string) {
	title := "🔧 Demande de Maintenance"
	priorityLevel := "normal"
	if priority == "emergency" {
		title = "🚨 Maintenance d'Urgence!"
		priorityLevel = "high"
	}
	body := fmt.Sprintf("Nouvelle demande (%s): %s", priority, title_)

	data := NotificationData{
		Type:    "maintenance",
		ID:      fmt.Sprintf("%d", requestID),
		LeaseID: fmt.Sprintf("%d", leaseID),
		Screen:  "MaintenanceRequests",
		Params:  fmt.Sprintf(`{"requestId": %d, "leaseId": %d}`, requestID, leaseID),
		Action:  "view_request",
	}

	ns.Notify(agentID, "maintenance", title, body, priorityLevel, "maintenance", requestID, fmt.Sprintf("/maintenance/%d", requestID), data)
}

// SendMaintenanceStatusNotificationToTenant tells the tenant their request moved along
func (ns *NotificationService) SendMaintenanceStatusNotificationToTenant(requestID, tenantID uint, status string) {
	var title, body string
	switch status {
	case "acknowledged":
		title = "👀 Demande Prise en Compte"
		body = "Votre demande de maintenance a été prise en compte par l'agent."
	case "in_progress":
		title = "🔧 Intervention en Cours"
		body = "Un intervenant travaille sur votre demande de maintenance."
	case "completed":
		title = "✅ Maintenance Terminée"
		body = "Votre demande de maintenance a été traitée."
	case "cancelled":
		title = "❌ Demande Annulée"
		body = "Votre demande de maintenance a été annulée."
	default:
		title = "🔧 Mise à Jour Maintenance"
		body = fmt.Sprintf("Statut de votre demande: %s", status)
	}

	data := NotificationData{
		Type:   "maintenance_status",
		ID:     fmt.Sprintf("%d", requestID),
		Screen: "MaintenanceRequests",
		Params: fmt.Sprintf(`{"requestId": %d, "status": "%s"}`, requestID, status),
	}

	ns.Notify(tenantID, "maintenance_status", title, body, "normal", "maintenance", requestID, fmt.Sprintf("/maintenance/%d", requestID), data)
}

// SendWelcomeNotificationToNewUser sends welcome notification to new users
func (ns *NotificationService) SendWelcomeNotificationToNewUser(userID uint, firstName string) error {
	title := "🎉 Bienvenue sur Nestie!"
	body := fmt.Sprintf("Bonjour %s! Trouvez votre prochain logement en Mauritanie.", firstName)

	data := NotificationData{
		Type:   "welcome",
		UserID: fmt.Sprintf("%d", userID),
	}

	// Wait a bit to ensure push token is registered
	time.Sleep(2 * time.Second)
	return ns.SendNotificationToUser(userID, title, body, data)
}

// Global notification service instance
var NotificationServiceInstance = NewNotificationService()
