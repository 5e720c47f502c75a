package routes

import (
	"bytes"
	"net/http"
	"strings"
	"text/template"

	"docchat-service/models"
	"docchat-service/utils"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

var widgetTemplate = template.Must(template.New("chatbot_script").Parse(`(function() {
    var apiBaseURL = '{{js .APIBaseURL}}';
    var companyID = '{{js .CompanyID}}';

    var container = document.createElement('div');
    container.id = 'chatbot-container';
    container.style.cssText = 'position:fixed;bottom:20px;right:20px;width:300px;height:400px;' +
        'border:1px solid #ccc;border-radius:10px;overflow:hidden;display:flex;' +
        'flex-direction:column;background:#fff;z-index:2147483647;';

    var header = document.createElement('div');
    header.style.cssText = 'padding:10px;background:#f1f1f1;border-bottom:1px solid #ccc;font-weight:bold;';
    header.textContent = 'Chatbot';

    var messages = document.createElement('div');
    messages.style.cssText = 'flex-grow:1;overflow-y:auto;padding:10px;';

    var input = document.createElement('input');
    input.type = 'text';
    input.placeholder = 'Type your message...';
    input.style.cssText = 'width:100%;padding:10px;border:none;border-top:1px solid #ccc;box-sizing:border-box;';

    container.appendChild(header);
    container.appendChild(messages);
    container.appendChild(input);
    document.body.appendChild(container);

    function addMessage(sender, text) {
        var line = document.createElement('p');
        var who = document.createElement('strong');
        who.textContent = sender + ': ';
        line.appendChild(who);
        line.appendChild(document.createTextNode(text));
        messages.appendChild(line);
        messages.scrollTop = messages.scrollHeight;
    }

    function sendMessage(message) {
        fetch(apiBaseURL + '/chat', {
            method: 'POST',
            headers: { 'Content-Type': 'application/json' },
            body: JSON.stringify({ company_id: companyID, message: message })
        })
        .then(function(response) {
            if (!response.ok) {
                return response.json().then(function(body) { throw new Error(body.message || response.statusText); });
            }
            return response.json();
        })
        .then(function(data) { addMessage('Chatbot', data.response); })
        .catch(function(error) {
            console.error('Error:', error);
            addMessage('Chatbot', 'Sorry, something went wrong.');
        });
    }

    input.addEventListener('keypress', function(e) {
        if (e.key === 'Enter' && this.value.trim() !== '') {
            addMessage('You', this.value);
            sendMessage(this.value);
            this.value = '';
        }
    });
})();
`))

const widgetContentType = "application/javascript; charset=utf-8"

type widgetData struct {
	APIBaseURL string
	CompanyID  string
}

func SetupWidgetRoutes(router *gin.Engine, deps Deps) {
	router.GET("/chatbot_script/:company_id", handleWidgetScript(deps.PublicBaseURL))
}

// handleWidgetScript renders the embeddable chat widget for a company.
func handleWidgetScript(baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("company_id")
		if err := models.ValidateTenantID(tenantID); err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		var buf bytes.Buffer
		if err := widgetTemplate.Execute(&buf, widgetData{APIBaseURL: baseURL, CompanyID: tenantID}); err != nil {
			utils.RespondWithInternalError(c, "Failed to render chatbot script", nil)
			return
		}

		c.Header("Vary", "Accept-Encoding")
		if strings.Contains(c.GetHeader("Accept-Encoding"), "br") {
			var compressed bytes.Buffer
			bw := brotli.NewWriterLevel(&compressed, brotli.DefaultCompression)
			if _, err := bw.Write(buf.Bytes()); err == nil && bw.Close() == nil {
				c.Header("Content-Encoding", "br")
				c.Data(http.StatusOK, widgetContentType, compressed.Bytes())
				return
			}
		}
		c.Data(http.StatusOK, widgetContentType, buf.Bytes())
	}
}
