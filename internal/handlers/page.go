package handlers

import "html"

// wrapWithTheme wraps rendered HTML content in the dashboard page layout
func wrapWithTheme(content, title, subtitle string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + html.EscapeString(title) + ` - MIIM</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            line-height: 1.6;
            color: #333;
            background: #f8f9fa;
            padding: 20px;
        }

        .container {
            max-width: 1000px;
            margin: 0 auto;
        }

        .header {
            background: linear-gradient(135deg, #0f766e 0%, #14b8a6 100%);
            color: white;
            padding: 2rem;
            margin-bottom: 2rem;
            border-radius: 12px;
            text-align: center;
        }

        .header h1 {
            font-size: 2.2rem;
            margin-bottom: 0.5rem;
        }

        .content {
            background: white;
            padding: 3rem;
            border-radius: 12px;
            border: 1px solid #e5e7eb;
        }

        .content h1 {
            display: none;
        }

        .content h2 {
            font-size: 1.5rem;
            color: #0f766e;
            margin: 2rem 0 1rem;
        }

        .content ul {
            margin-bottom: 1rem;
            padding-left: 2rem;
        }

        .content table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 1.5rem;
        }

        .content th, .content td {
            border: 1px solid #d1d5db;
            padding: 0.75rem;
            text-align: left;
        }

        .content th {
            background: #f9fafb;
            font-weight: 600;
        }

        @media (max-width: 768px) {
            .content {
                padding: 2rem 1.5rem;
            }
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>` + html.EscapeString(title) + `</h1>
            <div>` + html.EscapeString(subtitle) + `</div>
        </div>

        <div class="content">
            ` + content + `
        </div>
    </div>
</body>
</html>`
}
